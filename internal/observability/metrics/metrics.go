package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtask_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teamtask_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtask_authz_decisions_total",
		Help: "Authorization decisions by action and result",
	}, []string{"action", "result"})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtask_mutations_total",
		Help: "Committed mutations by entity and operation",
	}, []string{"entity", "operation"})

	revokedTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamtask_revoked_tokens_total",
		Help: "Session tokens revoked by logout",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthzDecision counts an allow, or a deny labelled with its reason code.
func ObserveAuthzDecision(action string, allowed bool, reason string) {
	result := "allow"
	if !allowed {
		result = reason
	}
	authzDecisions.WithLabelValues(action, result).Inc()
}

// ObserveMutation counts a committed mutation.
func ObserveMutation(entity, operation string) {
	mutations.WithLabelValues(entity, operation).Inc()
}

func IncrementRevokedTokens() {
	revokedTokens.Inc()
}
