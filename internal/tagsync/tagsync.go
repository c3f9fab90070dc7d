// Package tagsync propagates network tags onto the devices in each
// network. Devices already carrying every network tag are left alone.
package tagsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
	"github.com/LakeAndrew/MerakiScripts/internal/metrics"
)

// Dashboard is the subset of the Meraki client the tag sync needs.
type Dashboard interface {
	GetOrganizationNetworks(ctx context.Context, orgID string) ([]meraki.Network, error)
	GetNetworkDevices(ctx context.Context, networkID string) ([]meraki.Device, error)
	UpdateDeviceTags(ctx context.Context, serial string, tags []string) (*meraki.Device, error)
}

// Change is one planned device tag update.
type Change struct {
	Network string   `json:"network"`
	Serial  string   `json:"serial"`
	Before  []string `json:"before"`
	After   []string `json:"after"`
}

// Plan is the set of changes a sync would apply, plus the devices that
// were already in sync.
type Plan struct {
	OrgID   string   `json:"org_id"`
	Changes []Change `json:"changes"`
	Skipped int      `json:"skipped"`
	// Warnings records networks whose devices could not be listed.
	Warnings []string `json:"warnings,omitempty"`
}

// ApplyResult reports the outcome of applying a plan.
type ApplyResult struct {
	Applied int      `json:"applied"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Syncer computes and applies tag sync plans.
type Syncer struct {
	dash    Dashboard
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewSyncer creates a tag syncer.
func NewSyncer(dash Dashboard, logger *slog.Logger, recorder metrics.Recorder) *Syncer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Syncer{
		dash:    dash,
		logger:  logger.With("component", "tagsync"),
		metrics: recorder,
	}
}

// BuildPlan computes the changes needed to give every device the union of
// its own tags and its network's tags. It never mutates anything.
func (s *Syncer) BuildPlan(ctx context.Context, orgID string) (*Plan, error) {
	networks, err := s.dash.GetOrganizationNetworks(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list networks for org %s: %w", orgID, err)
	}

	plan := &Plan{OrgID: orgID}

	for _, network := range networks {
		devices, err := s.dash.GetNetworkDevices(ctx, network.ID)
		if err != nil {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("network %s: list devices: %v", network.Name, err))
			s.logger.Warn("device listing failed", "network_id", network.ID, "error", err)
			continue
		}

		for _, device := range devices {
			merged := unionTags(network.Tags, device.Tags)
			if tagSetsEqual(device.Tags, merged) {
				plan.Skipped++
				continue
			}

			plan.Changes = append(plan.Changes, Change{
				Network: network.Name,
				Serial:  device.Serial,
				Before:  device.Tags,
				After:   merged,
			})
			s.metrics.IncTagSyncChange("planned")
		}
	}

	s.logger.Info("tag sync plan built",
		"org_id", orgID,
		"changes", len(plan.Changes),
		"skipped", plan.Skipped,
	)

	return plan, nil
}

// Apply pushes every change in the plan. Individual failures are
// collected rather than aborting the remaining devices.
func (s *Syncer) Apply(ctx context.Context, plan *Plan) (*ApplyResult, error) {
	result := &ApplyResult{}

	for _, change := range plan.Changes {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if _, err := s.dash.UpdateDeviceTags(ctx, change.Serial, change.After); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("device %s: %v", change.Serial, err))
			s.metrics.IncTagSyncChange("failed")
			s.logger.Warn("tag update failed", "serial", change.Serial, "error", err)
			continue
		}

		result.Applied++
		s.metrics.IncTagSyncChange("applied")
		s.logger.Info("device tags updated",
			"serial", change.Serial,
			"before", change.Before,
			"after", change.After,
		)
	}

	return result, nil
}

// unionTags merges two tag lists, dropping duplicates and empty strings.
// The result is sorted so plans are deterministic.
func unionTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))

	for _, tags := range [][]string{a, b} {
		for _, tag := range tags {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}

	sort.Strings(merged)
	return merged
}

// tagSetsEqual compares two tag lists as sets, ignoring order,
// duplicates, and empty strings.
func tagSetsEqual(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, tag := range a {
		if tag != "" {
			setA[tag] = struct{}{}
		}
	}

	setB := make(map[string]struct{}, len(b))
	for _, tag := range b {
		if tag == "" {
			continue
		}
		if _, ok := setA[tag]; !ok {
			return false
		}
		setB[tag] = struct{}{}
	}

	return len(setA) == len(setB)
}
