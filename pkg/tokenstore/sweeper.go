package tokenstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/handoff/pkg/async"
	"github.com/platinummonkey/handoff/pkg/observability"
)

// DefaultSweepSchedule runs a sweep every minute
const DefaultSweepSchedule = "@every 1m"

// Sweepable is a store whose expired entries must be removed explicitly
type Sweepable interface {
	Sweep(ctx context.Context) (int64, error)
	Backend() string
}

// SweepRecorder counts swept entries; observability.Metrics implements it
type SweepRecorder interface {
	RecordSwept(backend string, n int64)
}

// Sweeper periodically removes expired tokens on a cron schedule
type Sweeper struct {
	store    Sweepable
	cron     *cron.Cron
	logger   *observability.Logger
	recorder SweepRecorder
	timeout  time.Duration

	mu       sync.Mutex
	inFlight <-chan struct{}
}

// SweeperOption customizes a Sweeper
type SweeperOption func(*Sweeper)

// WithSweepRecorder reports swept counts to r
func WithSweepRecorder(r SweepRecorder) SweeperOption {
	return func(s *Sweeper) {
		s.recorder = r
	}
}

// WithSweepTimeout bounds each sweep
func WithSweepTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSweeper schedules store sweeps. schedule accepts standard cron expressions
// and descriptors such as "@every 30s".
func NewSweeper(store Sweepable, schedule string, logger *observability.Logger, opts ...SweeperOption) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &Sweeper{
		store:   store,
		cron:    cron.New(),
		logger:  logger.WithField("component", "token_sweeper").WithField("backend", store.Backend()),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.cron.AddFunc(schedule, s.trigger); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the schedule
func (s *Sweeper) Start() {
	s.logger.Info("Starting token sweeper")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx
func (s *Sweeper) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop().Done()

	select {
	case <-cronDone:
	case <-ctx.Done():
		return fmt.Errorf("sweeper stop: %w", ctx.Err())
	}

	s.mu.Lock()
	inFlight := s.inFlight
	s.mu.Unlock()

	if inFlight != nil {
		select {
		case <-inFlight:
		case <-ctx.Done():
			return fmt.Errorf("sweeper stop: %w", ctx.Err())
		}
	}

	s.logger.Info("Token sweeper stopped")
	return nil
}

// SweepNow runs one sweep synchronously
func (s *Sweeper) SweepNow(ctx context.Context) (int64, error) {
	n, err := s.store.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	if s.recorder != nil {
		s.recorder.RecordSwept(s.store.Backend(), n)
	}
	if n > 0 {
		s.logger.WithField("removed", n).Debug("Swept expired tokens")
	}
	return n, nil
}

// trigger starts a background sweep unless the previous one is still running
func (s *Sweeper) trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight != nil {
		select {
		case <-s.inFlight:
		default:
			s.logger.Warn("Previous sweep still running, skipping")
			return
		}
	}

	s.inFlight = async.SafeGo(context.Background(), s.timeout, s.logger, "token sweep", func(ctx context.Context) error {
		_, err := s.SweepNow(ctx)
		return err
	})
}
