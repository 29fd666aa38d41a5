package tokenstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/handoff/pkg/observability"
)

// Config selects and configures a backend
type Config struct {
	// Type is one of memory, redis or postgres
	Type string

	Redis RedisConfig
	SQL   SQLConfig

	MemorySize   int
	MemoryMaxTTL time.Duration

	// AutoMigrate creates the Postgres table at startup
	AutoMigrate bool
}

// Backends lists the accepted Config.Type values
func Backends() []string {
	return []string{BackendMemory, BackendRedis, BackendPostgres}
}

// New builds the backend named by cfg.Type
func New(ctx context.Context, cfg Config, logger *observability.Logger) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Type))
	log := logger.WithField("backend", backend)

	switch backend {
	case BackendMemory, "":
		log.Warn("Using in-memory token store; tokens are not shared between processes")
		return NewMemoryStore(cfg.MemorySize, cfg.MemoryMaxTTL), nil

	case BackendRedis:
		store, err := NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to Redis token store")
		return store, nil

	case BackendPostgres:
		store, err := OpenSQLStore(ctx, cfg.SQL)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		log.Info("Connected to Postgres token store")
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Type)
	}
}
