package rbac

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archival_authz_decisions_total",
			Help: "Authorization decisions by permission and outcome",
		},
		[]string{"permission", "decision"},
	)

	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archival_permission_cache_hits_total",
			Help: "Permission resolver cache hits",
		},
		[]string{"kind"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archival_permission_cache_misses_total",
			Help: "Permission resolver cache misses",
		},
		[]string{"kind"},
	)
)

func recordDecision(permission Permission, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	decisionsTotal.WithLabelValues(string(permission), decision).Inc()
}
