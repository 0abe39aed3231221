package chrono

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("chronotree/chrono")

// Operation results recorded on replicaOpsTotal.
const (
	resultApplied = "applied"
	resultNoop    = "noop"
	resultError   = "error"
)

var (
	// replicaOpsTotal counts replica operations by operation and result
	replicaOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronotree_replica_operations_total",
		Help: "Total replica operations by operation and result",
	}, []string{"operation", "result"})

	// mergeDuration tracks merge latency including store round-trips
	mergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chronotree_merge_duration_seconds",
		Help:    "Merge duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	})

	// frontierSize tracks the number of tips after each state change
	frontierSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chronotree_frontier_size",
		Help:    "Number of causal tips after each state change",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
	})

	// storeLoadsTotal counts records pulled lazily from the store
	storeLoadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronotree_store_loads_total",
		Help: "Total records loaded from the store during resolution",
	})
)
