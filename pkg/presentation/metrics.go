package presentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamview_presentation_state_transitions_total",
		Help: "Presentation state transitions",
	}, []string{"from", "to"})

	metricStaleAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamview_presentation_stale_acquisitions_total",
		Help: "Acquisition results discarded because the controller moved on",
	})

	metricTrackEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamview_presentation_track_events_total",
		Help: "Track-set changes observed on the active stream",
	})
)
