package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncDashboardRequest is a no-op.
func (n *NoopRecorder) IncDashboardRequest(method, status string) {}

// ObserveDashboardRequestDuration is a no-op.
func (n *NoopRecorder) ObserveDashboardRequestDuration(duration time.Duration) {}

// IncDashboardCacheHit is a no-op.
func (n *NoopRecorder) IncDashboardCacheHit() {}

// IncDashboardCacheMiss is a no-op.
func (n *NoopRecorder) IncDashboardCacheMiss() {}

// IncAuditRun is a no-op.
func (n *NoopRecorder) IncAuditRun(status string) {}

// ObserveAuditRunDuration is a no-op.
func (n *NoopRecorder) ObserveAuditRunDuration(duration time.Duration) {}

// SetAuditQueueDepth is a no-op.
func (n *NoopRecorder) SetAuditQueueDepth(depth int64) {}

// IncTagSyncChange is a no-op.
func (n *NoopRecorder) IncTagSyncChange(status string) {}
