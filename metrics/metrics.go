package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_active_connections",
		Help: "Connections currently registered on this gateway node.",
	})
	FramesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_frames_delivered_total",
		Help: "Frames enqueued to recipient connections.",
	})
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_send_failures_total",
		Help: "Frames dropped because a recipient queue was closed or full.",
	})
)

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
