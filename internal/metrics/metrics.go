// Package metrics exposes Prometheus instrumentation for the triage
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts fleet analysis runs by outcome.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleettriage",
		Subsystem: "triage",
		Name:      "analyses_total",
		Help:      "Total fleet analysis runs by outcome.",
	}, []string{"outcome"})

	// AnalysisDuration tracks end-to-end analysis latency.
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleettriage",
		Subsystem: "triage",
		Name:      "analysis_duration_seconds",
		Help:      "Fleet analysis duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	// MachinesScored counts machines scored across all analysis runs.
	MachinesScored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleettriage",
		Subsystem: "triage",
		Name:      "machines_scored_total",
		Help:      "Total machines scored across analysis runs.",
	})

	// ChatAnswersTotal counts chat answers by source.
	ChatAnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleettriage",
		Subsystem: "chat",
		Name:      "answers_total",
		Help:      "Total chat answers by answer source.",
	}, []string{"source"})

	// GeneratorFailuresTotal counts answer generator call failures.
	GeneratorFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleettriage",
		Subsystem: "chat",
		Name:      "generator_failures_total",
		Help:      "Total answer generator call failures.",
	})

	// SessionsSweptTotal counts chat sessions removed by the expiry sweep.
	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleettriage",
		Subsystem: "chat",
		Name:      "sessions_swept_total",
		Help:      "Total chat sessions removed by the expiry sweep.",
	})
)
