package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/metrics"
)

// Runner refreshes a Service on a fixed cadence, independently of ingestion.
type Runner struct {
	svc   *Service
	every time.Duration
	log   zerolog.Logger
	sinks []func(*Snapshot)
}

// NewRunner schedules svc every d. Sinks are called synchronously with each successful snapshot.
func NewRunner(svc *Service, d time.Duration, log zerolog.Logger, sinks ...func(*Snapshot)) *Runner {
	if d <= 0 {
		d = 5 * time.Second
	}
	return &Runner{svc: svc, every: d, log: log, sinks: sinks}
}

// Run refreshes once immediately and then on every tick until ctx ends. Refresh errors are logged, not fatal.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()
	for {
		r.refresh(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) refresh(ctx context.Context) {
	start := time.Now()
	snap, err := r.svc.Snapshot(ctx)
	metrics.AnalyticsRefresh.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() == nil {
			metrics.StoreErrors.WithLabelValues("recent").Inc()
			r.log.Error().Stack().Err(err).Msg("analytics refresh failed")
		}
		return
	}
	Publish(snap)
	for _, sink := range r.sinks {
		sink(snap)
	}
}

// Publish exports the snapshot's headline values as gauges.
func Publish(snap *Snapshot) {
	pair := snap.Pair()
	for stat, v := range snap.Latest() {
		metrics.PairGauge.WithLabelValues(pair, stat).Set(v)
	}
}

// LogSink writes a one-line summary per snapshot.
func LogSink(log zerolog.Logger) func(*Snapshot) {
	return func(snap *Snapshot) {
		latest := snap.Latest()
		ev := log.Info().Str("pair", snap.Pair()).Str("interval", snap.Interval)
		for _, k := range []string{"hedge_ratio", "spread_zscore", "correlation", "adf_pvalue"} {
			ev = ev.Float64(k, latest[k])
		}
		ev.Bool("stationary", snap.Stationarity.Stationary).Msg("pair analytics")
	}
}
