package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreatedTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusride", Name: "rides_created_total", Help: "Total ride requests created"})
	AcceptsWonTotal     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusride", Name: "accepts_won_total", Help: "Total successful ride claims"})
	AcceptsLostTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusride", Name: "accepts_lost_total", Help: "Total ride claims lost to a racing captain"})
	DispatchesSentTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusride", Name: "dispatches_sent_total", Help: "Total real-time notifications delivered"})
	ChannelsConnected   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "campusride", Name: "channels_connected", Help: "Live websocket channel sessions"})
)
