package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	SessionEvents        *prometheus.CounterVec
	ExerciseStateUpdates prometheus.Counter
	StateSubscribers     prometheus.Gauge
	WSMessages           *prometheus.CounterVec
	RoomProviderErrors   *prometheus.CounterVec
	RosterEvents         *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		ExerciseStateUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exercise_state_updates_total",
			Help:      "Accepted exercise state mutations.",
		}),
		StateSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state_subscribers",
			Help:      "Open websocket subscriptions to session state.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and outcome.",
		}, []string{"direction", "outcome"}),
		RoomProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_provider_errors_total",
			Help:      "Room provider failures by operation.",
		}, []string{"operation"}),
		RosterEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_events_total",
			Help:      "Call roster events by type.",
		}, []string{"event"}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
