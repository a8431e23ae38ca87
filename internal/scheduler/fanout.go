package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/agora/internal/config"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/metrics"
)

// UserSource pages through active user ids in ascending order.
type UserSource interface {
	ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// Deliverer pushes one user's merged notifications.
type Deliverer interface {
	DeliverMerged(ctx context.Context, userID int64) (bool, error)
}

// TickResult summarizes one pass over all users.
type TickResult struct {
	Users     int
	Delivered int
	Skipped   int
	Failed    int
}

// FanOut periodically delivers merged notifications to every active user.
// Each user is handled by exactly one goroutine per tick and ticks never
// overlap, so deliveries for one user stay ordered.
type FanOut struct {
	users     UserSource
	deliverer Deliverer
	cfg       config.NotificationsConfig
	logger    zerolog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewFanOut(users UserSource, deliverer Deliverer, cfg config.NotificationsConfig) *FanOut {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	return &FanOut{
		users:     users,
		deliverer: deliverer,
		cfg:       cfg,
		logger:    logging.WithComponent("fanout"),
	}
}

// Run ticks until ctx is cancelled, starting with an immediate tick. It
// waits for an in-flight tick before returning.
func (f *FanOut) Run(ctx context.Context) error {
	f.logger.Info().
		Dur("interval", f.cfg.Interval).
		Int("concurrency", f.cfg.Concurrency).
		Msg("starting notification fan-out")

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	defer f.wg.Wait()

	f.trigger(ctx)
	for {
		select {
		case <-ticker.C:
			f.trigger(ctx)
		case <-ctx.Done():
			f.logger.Info().Msg("notification fan-out stopped")
			return ctx.Err()
		}
	}
}

// trigger starts a tick in the background unless one is still running.
func (f *FanOut) trigger(ctx context.Context) {
	if !f.running.CompareAndSwap(false, true) {
		metrics.FanOutTicks.WithLabelValues("skipped").Inc()
		f.logger.Warn().Msg("previous fan-out tick still running, skipping")
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.running.Store(false)
		if _, err := f.tick(ctx); err != nil && ctx.Err() == nil {
			f.logger.Error().Err(err).Msg("fan-out tick failed")
		}
	}()
}

// Tick runs one pass synchronously. ok is false when another tick was
// already in progress and this one was skipped.
func (f *FanOut) Tick(ctx context.Context) (res TickResult, ok bool, err error) {
	if !f.running.CompareAndSwap(false, true) {
		metrics.FanOutTicks.WithLabelValues("skipped").Inc()
		return TickResult{}, false, nil
	}
	defer f.running.Store(false)
	res, err = f.tick(ctx)
	return res, true, err
}

func (f *FanOut) tick(ctx context.Context) (TickResult, error) {
	metrics.FanOutTicks.WithLabelValues("run").Inc()
	start := time.Now()
	defer func() { metrics.FanOutTickDuration.Observe(time.Since(start).Seconds()) }()

	var (
		g                          errgroup.Group
		users                      int
		delivered, skipped, failed atomic.Int64
	)
	g.SetLimit(f.cfg.Concurrency)

	var after int64
	var pageErr error
	for {
		ids, err := f.users.ListActiveIDs(ctx, after, f.cfg.PageSize)
		if err != nil {
			pageErr = fmt.Errorf("listing users after %d: %w", after, err)
			break
		}
		for _, id := range ids {
			users++
			g.Go(func() error {
				userCtx, cancel := context.WithTimeout(ctx, f.cfg.DeliveryTimeout)
				defer cancel()

				ok, err := f.deliverer.DeliverMerged(userCtx, id)
				switch {
				case err != nil:
					failed.Add(1)
					metrics.FanOutDeliveries.WithLabelValues("failed").Inc()
					f.logger.Error().Err(err).Int64("user", id).Msg("notification delivery failed")
				case ok:
					delivered.Add(1)
					metrics.FanOutDeliveries.WithLabelValues("delivered").Inc()
				default:
					skipped.Add(1)
					metrics.FanOutDeliveries.WithLabelValues("skipped").Inc()
				}
				return nil
			})
		}
		if len(ids) < f.cfg.PageSize {
			break
		}
		after = ids[len(ids)-1]
	}
	_ = g.Wait()

	res := TickResult{
		Users:     users,
		Delivered: int(delivered.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	f.logger.Debug().
		Int("users", res.Users).
		Int("delivered", res.Delivered).
		Int("failed", res.Failed).
		Dur("took", time.Since(start)).
		Msg("fan-out tick finished")
	return res, pageErr
}
