package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marksheet_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)

	stageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marksheet_stage_total",
			Help: "Pipeline stage completions by status",
		},
		[]string{"stage", "status"},
	)

	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marksheet_documents_total",
			Help: "Processed documents by overall status",
		},
		[]string{"mode", "status"},
	)
)
