package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"qr-ticket-system/internal/infra/metrics"
)

// StatsFunc reports the current connection pool counters of a store.
type StatsFunc func() (total, idle, inUse int32)

// PoolStatsWorker periodically publishes store connection pool stats.
type PoolStatsWorker struct {
	interval time.Duration
	sample   StatsFunc
	log      *zerolog.Logger
}

func NewPoolStatsWorker(interval time.Duration, sample StatsFunc, logger *zerolog.Logger) *PoolStatsWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	l := logger.With().Str("component", "PoolStatsWorker").Logger()
	return &PoolStatsWorker{interval: interval, sample: sample, log: &l}
}

// Run samples once immediately, then every interval until ctx is done.
func (w *PoolStatsWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting pool stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pool stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *PoolStatsWorker) tick() {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncJob("pool_stats", "panic")
			w.log.Error().Interface("panic", rec).Msg("pool stats sample panicked")
		}
	}()
	start := time.Now()
	total, idle, inUse := w.sample()
	metrics.SetDBPoolStats(total, idle, inUse)
	metrics.ObserveJob("pool_stats", time.Since(start))
	metrics.IncJob("pool_stats", "ok")
	w.log.Trace().Int32("total", total).Int32("idle", idle).Int32("in_use", inUse).Msg("pool stats")
}
