package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysisTotal counts invoice analyses.
	// Labels: outcome (parsed, fallback)
	AnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reimbursement",
			Name:      "analysis_total",
			Help:      "Total number of invoice analyses by outcome",
		},
		[]string{"outcome"},
	)

	// AnalysisDuration tracks the completion round trip of one analysis.
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reimbursement",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of invoice analysis calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	// ParseIssuesTotal counts fields that fell back to defaults while parsing.
	// Labels: issue (see ParseIssue)
	ParseIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reimbursement",
			Name:      "parse_issues_total",
			Help:      "Total number of analysis response fields that could not be parsed",
		},
		[]string{"issue"},
	)
)
