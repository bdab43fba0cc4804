package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations by resource type and outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authzd_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"resource_type", "action", "result"},
	)

	// LedgerTransitions counts authorization ledger state changes (created|reactivated|revoked|noop).
	LedgerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authzd_ledger_transitions_total",
			Help: "Authorization ledger transitions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// GrantConflicts counts unique-key races that forced a grant retry.
	GrantConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authzd_grant_conflicts_total",
			Help: "Concurrent grant inserts resolved by retrying as an update",
		},
	)

	// RolePermissionsRevoked counts role_permission rows removed by bulk revocation.
	RolePermissionsRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authzd_role_permissions_revoked_total",
			Help: "Role permission rows removed by bulk revocation",
		},
	)

	// PermissionCacheLookups tracks effective-permission cache usage (hit|miss|error).
	PermissionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authzd_permission_cache_lookups_total",
			Help: "Effective permission cache lookups",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authzd_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
