package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks persisted"},
		[]string{"symbol"},
	)
	FeedReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_reconnects_total", Help: "Feed connection losses followed by a retry"},
		[]string{"symbol"},
	)
	FeedMessagesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_messages_skipped_total", Help: "Inbound feed messages that were not trades or failed to decode"},
		[]string{"symbol", "reason"},
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_errors_total", Help: "Tick store operations that failed"},
		[]string{"op"},
	)
	AnalyticsRefresh = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analytics_refresh_seconds",
		Help:    "Wall time of one analytics snapshot",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	PairGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "pair_stat", Help: "Latest value of a pair statistic (NaN while undefined)"},
		[]string{"pair", "stat"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, FeedReconnects, FeedMessagesSkipped, StoreErrors, AnalyticsRefresh, PairGauge)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
