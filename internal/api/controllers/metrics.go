package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indicatorQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cais_indicator_queries_total",
			Help: "Indicator query executions by outcome",
		},
		[]string{"outcome"},
	)

	analysisSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cais_analysis_submissions_total",
			Help: "Analysis job submissions by outcome",
		},
		[]string{"outcome"},
	)
)
