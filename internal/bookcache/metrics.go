package bookcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal tracks book cache updates by event type.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btcupdown_bookcache_updates_total",
			Help: "Total number of book cache updates",
		},
		[]string{"event_type"},
	)

	// BooksTracked tracks the number of token books held in memory.
	BooksTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "btcupdown_bookcache_books_tracked",
		Help: "Number of token order books tracked in memory",
	})

	// UpdatesDroppedTotal tracks updates dropped because the fan-out channel
	// was full.
	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btcupdown_bookcache_updates_dropped_total",
			Help: "Total number of book cache updates dropped due to channel full",
		},
		[]string{"reason"},
	)

	// ParseFailuresTotal tracks messages dropped for failing to parse.
	ParseFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "btcupdown_bookcache_parse_failures_total",
			Help: "Total number of book messages silently dropped on parse failure",
		},
		[]string{"event_type"},
	)

	// UpdateProcessingDuration tracks book update processing time.
	UpdateProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "btcupdown_bookcache_update_processing_duration_seconds",
		Help:    "Time to process a book cache update (parse + store + notify)",
		Buckets: []float64{0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	// LockContentionDuration tracks time waiting for the cache mutex.
	LockContentionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "btcupdown_bookcache_lock_contention_seconds",
		Help:    "Time waiting to acquire the book cache mutex",
		Buckets: []float64{0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
)
