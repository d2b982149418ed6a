package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandidatesDiscoveredTotal tracks total BTC up/down candidates parsed off
	// the Gamma feed, admitted or not.
	CandidatesDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcupdown_discovery_candidates_total",
		Help: "Total number of BTC up/down candidates parsed from the Gamma API",
	})

	// NewMarketsTotal tracks markets admitted and pushed to the new-markets
	// channel.
	NewMarketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcupdown_discovery_new_markets_total",
		Help: "Total number of new markets admitted and pushed downstream",
	})

	// MarketsFilteredByWindowTotal tracks candidates dropped for having more
	// than 30 minutes left to expiry.
	MarketsFilteredByWindowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcupdown_discovery_markets_filtered_by_window_total",
		Help: "Total number of candidates filtered out for being outside the admission window",
	})

	// PollDurationSeconds tracks Gamma API poll latency.
	PollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "btcupdown_discovery_poll_duration_seconds",
		Help:    "Duration of Gamma API poll requests",
		Buckets: prometheus.DefBuckets,
	})

	// PollErrorsTotal tracks Gamma API poll failures.
	PollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcupdown_discovery_poll_errors_total",
		Help: "Total number of Gamma API poll failures",
	})
)
