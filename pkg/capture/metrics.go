package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamview_capture_acquisitions_total",
		Help: "Capture requests by result",
	}, []string{"result"})

	metricTracksStopped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamview_capture_tracks_stopped_total",
		Help: "Self-owned tracks stopped",
	})

	metricOwnedStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamview_capture_owned_streams",
		Help: "Self-owned streams currently held",
	})
)
