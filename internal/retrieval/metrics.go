package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreWritesTotal counts document writes.
	// Labels: result (success, duplicate, error)
	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reimbursement",
			Name:      "store_writes_total",
			Help:      "Total number of decision documents written to the retrieval index",
		},
		[]string{"result"},
	)

	// SearchTotal counts searches.
	// Labels: numeric_filtered (true, false)
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reimbursement",
			Name:      "search_total",
			Help:      "Total number of retrieval searches",
		},
		[]string{"numeric_filtered"},
	)

	// SearchDroppedTotal counts candidates removed by numeric threshold filters.
	SearchDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reimbursement",
			Name:      "search_dropped_total",
			Help:      "Total number of search candidates removed by amount thresholds",
		},
	)
)
