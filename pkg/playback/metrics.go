package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamview_playback_starts_total",
		Help: "Playback start attempts by outcome",
	}, []string{"outcome"})

	metricRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamview_playback_interaction_retries_total",
		Help: "Playback retries triggered by a user interaction, by result",
	}, []string{"result"})

	metricBindingsArmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamview_playback_bindings_armed_total",
		Help: "Unlock-on-interaction bindings armed",
	})
)
