package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/LakeAndrew/MerakiScripts/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for _, key := range sortedKeys(snap.DashboardRequests) {
		method, status, _ := strings.Cut(key, " ")
		writeMetric(w, "meraki_dashboard_requests_total{method=%q,status=%q} %d\n",
			method, status, snap.DashboardRequests[key])
	}
	writeMetric(w, "meraki_dashboard_request_duration_seconds_count %d\n", snap.DashboardDurationCount)
	writeMetric(w, "meraki_dashboard_request_duration_seconds_sum %.6f\n", float64(snap.DashboardDurationTotalNs)/1e9)
	writeMetric(w, "meraki_dashboard_cache_hits_total %d\n", snap.DashboardCacheHits)
	writeMetric(w, "meraki_dashboard_cache_misses_total %d\n", snap.DashboardCacheMisses)

	for _, key := range sortedKeys(snap.AuditRuns) {
		writeMetric(w, "meraki_audit_runs_total{status=%q} %d\n", key, snap.AuditRuns[key])
	}
	writeMetric(w, "meraki_audit_run_duration_seconds_count %d\n", snap.AuditRunDurationCount)
	writeMetric(w, "meraki_audit_run_duration_seconds_sum %.6f\n", float64(snap.AuditRunDurationTotalNs)/1e9)
	writeMetric(w, "meraki_audit_queue_depth %d\n", snap.AuditQueueDepth)

	for _, key := range sortedKeys(snap.TagSyncChanges) {
		writeMetric(w, "meraki_tagsync_changes_total{status=%q} %d\n", key, snap.TagSyncChanges[key])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// sortedKeys keeps the exposition output stable between scrapes.
func sortedKeys(in map[string]uint64) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
