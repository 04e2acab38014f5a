// Package sweeper removes expired refresh-token records on an interval.
// Expired records carry no authority (rotation rejects them), so the sweep
// is pure garbage collection and safe to run at any cadence.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"authcore/internal/auth/store"
	"authcore/internal/platform/metrics"
)

// DefaultInterval is how often a sweep runs unless configured otherwise.
const DefaultInterval = time.Hour

// Sweeper periodically deletes expired refresh tokens through the Unit of
// Work, so each sweep is one atomic pass.
type Sweeper struct {
	uow      store.UnitOfWork
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithInterval overrides the sweep cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New builds a sweeper. metrics may be nil.
func New(uow store.UnitOfWork, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		uow:      uow,
		interval: DefaultInterval,
		logger:   logger,
		metrics:  m,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run sweeps on the configured interval until the context ends. A failed
// sweep is logged and retried on the next tick; only context cancellation
// stops the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "refresh token sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one deletion pass and returns the number of records removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock()
	var deleted int
	err := s.uow.RunInTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		var err error
		deleted, err = stores.RefreshTokens.DeleteExpired(ctx, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "swept expired refresh tokens", "deleted", deleted)
	}
	s.metrics.AddTokensSwept(deleted)
	return deleted, nil
}
