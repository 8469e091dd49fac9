package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/localperks/review-rewards/pkg/logger"
)

// Sweeper expires coupons past their validity window
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Worker runs the coupon expiry sweep on a fixed interval. Sweeps are
// idempotent and safe alongside concurrent redemptions, so overlapping or
// missed runs are harmless.
type Worker struct {
	sweeper  Sweeper
	interval time.Duration
	done     chan struct{}
}

// DefaultSweepInterval is used when no interval is configured
const DefaultSweepInterval = 5 * time.Minute

// NewWorker creates a sweep worker
func NewWorker(sweeper Sweeper, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Worker{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled. One sweep runs
// immediately at startup to catch coupons that expired during downtime.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		logger.Info("coupon sweep worker started",
			zap.Duration("interval", w.interval))

		w.sweep(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("coupon sweep worker stopped")
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

// Wait blocks until the worker's loop has exited
func (w *Worker) Wait() {
	<-w.done
}

func (w *Worker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	count, err := w.sweeper.SweepExpired(sweepCtx)
	if err != nil {
		logger.Error("coupon sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		logger.Info("coupon sweep completed", zap.Int("expired", count))
	}
}
