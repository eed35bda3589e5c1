package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics
	LifecycleOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodegrid_lifecycle_operations_total",
			Help: "Total number of container lifecycle operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ManagedContainers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nodegrid_managed_containers",
			Help: "Number of managed containers seen by the last listing",
		},
	)

	// Heartbeat metrics
	HeartbeatPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodegrid_heartbeat_pushes_total",
			Help: "Total number of heartbeat pushes by outcome",
		},
		[]string{"outcome"},
	)

	// Rotation metrics
	Rotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodegrid_token_rotations_total",
			Help: "Total number of agent-side token rotations by outcome",
		},
		[]string{"outcome"},
	)

	// Console metrics
	ConsoleSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nodegrid_console_sessions_total",
			Help: "Total number of console sessions served",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodegrid_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(LifecycleOps)
	prometheus.MustRegister(ManagedContainers)
	prometheus.MustRegister(HeartbeatPushes)
	prometheus.MustRegister(Rotations)
	prometheus.MustRegister(ConsoleSessions)
	prometheus.MustRegister(APIRequestsTotal)
}

// Outcome converts an operation error into a metric label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
