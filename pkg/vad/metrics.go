package vad

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamview_vad_sessions_started_total",
		Help: "Analysis sessions started",
	})

	metricSessionsUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamview_vad_sessions_unavailable_total",
		Help: "Analysis sessions that could not start, by reason",
	}, []string{"reason"})

	metricSpeakingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamview_vad_speaking_transitions_total",
		Help: "Speaking signal transitions",
	}, []string{"to"})

	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamview_vad_active_sessions",
		Help: "Analysis sessions currently sampling",
	})
)
