package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamview_server_clients",
		Help: "Connected presentation clients",
	})

	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamview_server_commands_total",
		Help: "Commands received from presentation clients",
	}, []string{"type"})

	metricDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamview_server_dropped_messages_total",
		Help: "Messages dropped because a client fell behind",
	})
)
