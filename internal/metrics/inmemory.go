package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	DashboardRequests        map[string]uint64 // key: "METHOD status"
	DashboardDurationCount   uint64
	DashboardDurationTotalNs int64
	DashboardCacheHits       uint64
	DashboardCacheMisses     uint64
	AuditRuns                map[string]uint64
	AuditRunDurationCount    uint64
	AuditRunDurationTotalNs  int64
	AuditQueueDepth          int64
	TagSyncChanges           map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests and the metrics
// endpoint.
type InMemoryRecorder struct {
	mu                sync.Mutex
	dashboardRequests map[string]uint64
	auditRuns         map[string]uint64
	tagSyncChanges    map[string]uint64

	dashboardDurationCount   uint64
	dashboardDurationTotalNs int64
	dashboardCacheHits       uint64
	dashboardCacheMisses     uint64
	auditRunDurationCount    uint64
	auditRunDurationTotalNs  int64
	auditQueueDepth          int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		dashboardRequests: make(map[string]uint64),
		auditRuns:         make(map[string]uint64),
		tagSyncChanges:    make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		DashboardRequests:        copyCounters(m.dashboardRequests),
		DashboardDurationCount:   atomic.LoadUint64(&m.dashboardDurationCount),
		DashboardDurationTotalNs: atomic.LoadInt64(&m.dashboardDurationTotalNs),
		DashboardCacheHits:       atomic.LoadUint64(&m.dashboardCacheHits),
		DashboardCacheMisses:     atomic.LoadUint64(&m.dashboardCacheMisses),
		AuditRuns:                copyCounters(m.auditRuns),
		AuditRunDurationCount:    atomic.LoadUint64(&m.auditRunDurationCount),
		AuditRunDurationTotalNs:  atomic.LoadInt64(&m.auditRunDurationTotalNs),
		AuditQueueDepth:          atomic.LoadInt64(&m.auditQueueDepth),
		TagSyncChanges:           copyCounters(m.tagSyncChanges),
	}
}

// IncDashboardRequest increments the request counter for a method/status pair.
func (m *InMemoryRecorder) IncDashboardRequest(method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboardRequests[method+" "+status]++
}

// ObserveDashboardRequestDuration records a request duration.
func (m *InMemoryRecorder) ObserveDashboardRequestDuration(duration time.Duration) {
	atomic.AddUint64(&m.dashboardDurationCount, 1)
	atomic.AddInt64(&m.dashboardDurationTotalNs, duration.Nanoseconds())
}

// IncDashboardCacheHit increments the response cache hit counter.
func (m *InMemoryRecorder) IncDashboardCacheHit() {
	atomic.AddUint64(&m.dashboardCacheHits, 1)
}

// IncDashboardCacheMiss increments the response cache miss counter.
func (m *InMemoryRecorder) IncDashboardCacheMiss() {
	atomic.AddUint64(&m.dashboardCacheMisses, 1)
}

// IncAuditRun increments the audit run counter for a terminal status.
func (m *InMemoryRecorder) IncAuditRun(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditRuns[status]++
}

// ObserveAuditRunDuration records an audit run duration.
func (m *InMemoryRecorder) ObserveAuditRunDuration(duration time.Duration) {
	atomic.AddUint64(&m.auditRunDurationCount, 1)
	atomic.AddInt64(&m.auditRunDurationTotalNs, duration.Nanoseconds())
}

// SetAuditQueueDepth records the current pending run count.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	atomic.StoreInt64(&m.auditQueueDepth, depth)
}

// IncTagSyncChange increments the tag sync change counter.
func (m *InMemoryRecorder) IncTagSyncChange(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagSyncChanges[status]++
}

func copyCounters(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
