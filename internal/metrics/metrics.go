// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Dashboard API metrics
	IncDashboardRequest(method, status string) // status: HTTP code or "transport_error"
	ObserveDashboardRequestDuration(duration time.Duration)
	IncDashboardCacheHit()
	IncDashboardCacheMiss()

	// Audit run metrics
	IncAuditRun(status string) // status: "completed" or "failed"
	ObserveAuditRunDuration(duration time.Duration)
	SetAuditQueueDepth(depth int64)

	// Tag sync metrics
	IncTagSyncChange(status string) // status: "planned", "applied", "failed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
