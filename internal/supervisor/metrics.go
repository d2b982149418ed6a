package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsTrackedGauge reports the registry's total tracked market count.
	MarketsTrackedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polymarket_supervisor_markets_tracked",
		Help: "Total markets currently tracked by the registry",
	})

	// MarketsByStatusGauge reports tracked market count by status.
	MarketsByStatusGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polymarket_supervisor_markets_by_status",
		Help: "Tracked market count, labeled by state machine status",
	}, []string{"status"})

	// MarketsExpiredTotal counts markets removed by the expiry sweep.
	MarketsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_supervisor_markets_expired_total",
		Help: "Total markets removed from the registry on expiry",
	})

	// MachinesSpawnedTotal counts state machine goroutines started.
	MachinesSpawnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_supervisor_machines_spawned_total",
		Help: "Total per-market state machine goroutines started",
	})
)
