package monitor

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRefreshInterval is the refresher's cadence, independent of how often
// clients are pushed updates.
const DefaultRefreshInterval = 30 * time.Second

// RefreshRecorder receives refresh cycle measurements.
type RefreshRecorder interface {
	ObserveRefresh(duration time.Duration, failed bool)
}

// Refresher is the cache's only writer.
type Refresher struct {
	cache    *Cache
	checker  Checker
	interval time.Duration
	recorder RefreshRecorder
	log      *slog.Logger
}

func NewRefresher(cache *Cache, checker Checker, interval time.Duration, recorder RefreshRecorder, log *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		cache:    cache,
		checker:  checker,
		interval: interval,
		recorder: recorder,
		log:      log,
	}
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("Starting check refresher", slog.Duration("interval", r.interval))
	for {
		r.Refresh(ctx)

		select {
		case <-ctx.Done():
			r.log.Info("Check refresher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh computes one snapshot and publishes it. Probe failures are logged
// and still published.
func (r *Refresher) Refresh(ctx context.Context) {
	start := time.Now()
	snap, err := r.checker.Check(ctx)
	if ctx.Err() != nil {
		return
	}
	duration := time.Since(start)

	if err != nil {
		r.log.Warn("Some checks failed", "err", err)
	}
	r.cache.Store(snap)

	if r.recorder != nil {
		r.recorder.ObserveRefresh(duration, err != nil)
	}
	r.log.Debug("Check cache refreshed", slog.Duration("duration", duration))
}
