package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PsylineServices/psy-scheduler/internal/idempotency"
	"github.com/PsylineServices/psy-scheduler/internal/usecase/booking"
)

// Sweeper periodically releases expired slot holds and purges expired
// idempotency records.
type Sweeper struct {
	release  *booking.ReleaseExpiredHolds
	guard    *idempotency.Guard
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

func New(
	release *booking.ReleaseExpiredHolds,
	guard *idempotency.Guard,
	interval time.Duration,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		release:  release,
		guard:    guard,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting hold sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	// first pass right away, then on the ticker
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("hold sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("hold sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	released, err := s.release.Execute(ctx)
	if err != nil {
		s.logger.Error("hold sweep failed", zap.Error(err))
	} else if released > 0 {
		s.logger.Info("released expired holds", zap.Int("count", released))
	}

	if _, err := s.guard.PurgeExpired(ctx); err != nil {
		s.logger.Error("idempotency purge failed", zap.Error(err))
	}
}
