package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/platinummonkey/handoff/pkg/config"
	"github.com/platinummonkey/handoff/pkg/tokenstore"
)

// storeFlags selects a token store. Defaults come from the same HANDOFF_* variables
// the server reads, so the CLI talks to the server's store without extra flags.
type storeFlags struct {
	base        tokenstore.Config
	storeType   *string
	redisURL    *string
	postgresURL *string
	timeout     *time.Duration
}

func addStoreFlags(fs *flag.FlagSet) *storeFlags {
	base := config.LoadStoreConfig()
	return &storeFlags{
		base:        base,
		storeType:   fs.String("store", base.Type, "Token store type (memory, redis, postgres)"),
		redisURL:    fs.String("redis-url", base.Redis.URL, "Redis URL"),
		postgresURL: fs.String("postgres-url", base.SQL.URL, "PostgreSQL URL"),
		timeout:     fs.Duration("timeout", 10*time.Second, "Overall command timeout"),
	}
}

func (f *storeFlags) config() tokenstore.Config {
	cfg := f.base
	cfg.Type = *f.storeType
	cfg.Redis.URL = *f.redisURL
	cfg.SQL.URL = *f.postgresURL
	cfg.AutoMigrate = false
	return cfg
}

// open connects to the selected store under the command timeout. The caller must
// call the returned cancel and close the store.
func (f *storeFlags) open(env *Env) (tokenstore.Store, context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), *f.timeout)

	cfg := f.config()
	if cfg.Type == tokenstore.BackendMemory {
		env.Logger.Warn("Using the in-memory token store; its contents vanish when this command exits")
	}

	store, err := env.OpenStore(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("failed to open %s token store: %w", cfg.Type, err)
	}
	return store, ctx, cancel, nil
}
