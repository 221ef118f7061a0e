package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

// Expirer moves overdue pending bookings to expired.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Cleaner drops idempotency records past their TTL.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Sweeper runs the periodic housekeeping jobs on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	bookings Expirer
	idem     Cleaner
	timeout  time.Duration
}

// NewSweeper schedules the sweep. idem may be nil when the idempotency
// store expires keys on its own.
func NewSweeper(schedule string, bookings Expirer, idem Cleaner) (*Sweeper, error) {
	s := &Sweeper{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		bookings: bookings,
		idem:     idem,
		timeout:  30 * time.Second,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	logger.Info("Sweeper started")
	s.cron.Start()
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("Sweeper did not stop in time")
	}
}

// RunOnce performs one sweep. Failures are logged and retried next tick.
func (s *Sweeper) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if n, err := s.bookings.ExpireStale(ctx); err != nil {
		logger.ErrorContext(ctx, "Booking expiry sweep failed", "error", err)
	} else if n > 0 {
		logger.InfoContext(ctx, "Booking expiry sweep", "expired_groups", n)
	}

	if s.idem == nil {
		return
	}
	if n, err := s.idem.CleanupExpired(ctx); err != nil {
		logger.ErrorContext(ctx, "Idempotency cleanup failed", "error", err)
	} else if n > 0 {
		logger.DebugContext(ctx, "Idempotency cleanup", "removed", n)
	}
}
