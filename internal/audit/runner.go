package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
	"github.com/LakeAndrew/MerakiScripts/internal/metrics"
	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// DefaultNetworkConcurrency bounds concurrent network scans; each network
// scan issues several API calls, so the effective request rate is governed
// by the client's limiter.
const DefaultNetworkConcurrency = 4

// Dashboard is the subset of the Meraki client the audit needs.
type Dashboard interface {
	GetOrganizations(ctx context.Context) ([]meraki.Organization, error)
	GetOrganizationNetworks(ctx context.Context, orgID string) ([]meraki.Network, error)
	GetOrganizationDeviceStatuses(ctx context.Context, orgID string, serials []string) ([]meraki.DeviceStatus, error)
	GetNetworkClients(ctx context.Context, networkID string, lookback time.Duration) ([]meraki.NetworkClient, error)
	GetNetworkDevices(ctx context.Context, networkID string) ([]meraki.Device, error)
	GetDeviceSwitchPorts(ctx context.Context, serial string) ([]meraki.SwitchPort, error)
	GetDeviceUplinks(ctx context.Context, serial string) ([]meraki.Uplink, error)
}

// Options configures an audit run.
type Options struct {
	// OrgID to audit. Empty triggers organization discovery, which only
	// succeeds when the API key sees exactly one organization.
	OrgID string
	// Manufacturers matched case-insensitively against client records.
	Manufacturers []string
	// MACPrefix in any separator style, e.g. "50a4.d0".
	MACPrefix string
	// TargetVLAN for the access-port scan.
	TargetVLAN int
	// Lookback window for client records.
	Lookback time.Duration
	// NetworkConcurrency bounds parallel network scans.
	NetworkConcurrency int
}

// Runner executes organization audits.
type Runner struct {
	dash    Dashboard
	logger  *slog.Logger
	metrics metrics.Recorder
	opts    Options
}

// NewRunner creates an audit runner.
func NewRunner(dash Dashboard, logger *slog.Logger, recorder metrics.Recorder, opts Options) *Runner {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if opts.NetworkConcurrency <= 0 {
		opts.NetworkConcurrency = DefaultNetworkConcurrency
	}
	return &Runner{
		dash:    dash,
		logger:  logger.With("component", "audit.runner"),
		metrics: recorder,
		opts:    opts,
	}
}

// networkResult holds the collected records for one network.
type networkResult struct {
	networkName string
	clients     []model.ClientRecord
	ports       []model.AccessPortRecord
	devices     []model.DeviceRecord
	warnings    []string
}

// Run executes a full audit for the given organization. An empty orgID
// falls back to the runner's configured organization, then to discovery.
//
// The run fails only when the organization cannot be resolved or its
// network list cannot be fetched. Per-network and per-device failures
// degrade to warnings on the result, matching how an auditor wants a
// mostly-healthy org reported.
func (r *Runner) Run(ctx context.Context, orgID string) (*model.AuditResult, error) {
	start := time.Now()

	if orgID == "" {
		orgID = r.opts.OrgID
	}

	orgID, err := r.resolveOrg(ctx, orgID)
	if err != nil {
		r.metrics.IncAuditRun("failed")
		return nil, err
	}

	networks, err := r.dash.GetOrganizationNetworks(ctx, orgID)
	if err != nil {
		r.metrics.IncAuditRun("failed")
		if errors.Is(err, meraki.ErrNotFound) {
			return nil, fmt.Errorf("organization %s is not accessible with this API key: %w", orgID, err)
		}
		return nil, fmt.Errorf("list networks for org %s: %w", orgID, err)
	}

	r.logger.Info("audit started",
		"org_id", orgID,
		"networks", len(networks),
		"concurrency", r.opts.NetworkConcurrency,
	)

	statuses := r.fetchDeviceStatuses(ctx, orgID)

	results := make([]*networkResult, len(networks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.NetworkConcurrency)

	for i, network := range networks {
		i, network := i, network
		g.Go(func() error {
			res := r.scanNetwork(gctx, network, statuses)
			results[i] = res
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		r.metrics.IncAuditRun("failed")
		return nil, fmt.Errorf("audit cancelled: %w", err)
	}

	result := r.aggregate(orgID, results)

	duration := time.Since(start)
	r.metrics.IncAuditRun("completed")
	r.metrics.ObserveAuditRunDuration(duration)

	summary := result.Summary()
	r.logger.Info("audit completed",
		"org_id", orgID,
		"filtered_clients", summary.FilteredClients,
		"access_ports", summary.AccessPorts,
		"devices", summary.Devices,
		"warnings", summary.Warnings,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	return result, nil
}

// resolveOrg returns the org to audit, discovering it when none was
// configured. Discovery only succeeds for keys scoped to a single org;
// anything else needs an explicit ORG_ID.
func (r *Runner) resolveOrg(ctx context.Context, orgID string) (string, error) {
	if orgID != "" {
		return orgID, nil
	}

	orgs, err := r.dash.GetOrganizations(ctx)
	if err != nil {
		return "", fmt.Errorf("discover organizations: %w", err)
	}

	switch len(orgs) {
	case 0:
		return "", errors.New("no organizations visible to this API key; set ORG_ID")
	case 1:
		r.logger.Info("discovered organization", "org_id", orgs[0].ID, "org_name", orgs[0].Name)
		return orgs[0].ID, nil
	default:
		return "", fmt.Errorf("API key sees %d organizations; set ORG_ID to choose one", len(orgs))
	}
}

// fetchDeviceStatuses loads org-level device statuses once for the whole
// run. Failure degrades every device to status "unknown".
func (r *Runner) fetchDeviceStatuses(ctx context.Context, orgID string) map[string]meraki.DeviceStatus {
	statuses, err := r.dash.GetOrganizationDeviceStatuses(ctx, orgID, nil)
	if err != nil {
		r.logger.Warn("device statuses unavailable", "org_id", orgID, "error", err)
		return nil
	}

	bySerial := make(map[string]meraki.DeviceStatus, len(statuses))
	for _, status := range statuses {
		bySerial[status.Serial] = status
	}
	return bySerial
}

// scanNetwork collects all three audit tasks for one network.
func (r *Runner) scanNetwork(ctx context.Context, network meraki.Network, statuses map[string]meraki.DeviceStatus) *networkResult {
	res := &networkResult{networkName: network.Name}
	logger := r.logger.With("network_id", network.ID, "network_name", network.Name)

	devices, err := r.dash.GetNetworkDevices(ctx, network.ID)
	if err != nil {
		res.warnings = append(res.warnings, fmt.Sprintf("network %s: list devices: %v", network.Name, err))
		logger.Warn("device listing failed", "error", err)
		devices = nil
	}

	res.clients = r.collectClients(ctx, network, logger, res)
	res.ports = r.collectAccessPorts(ctx, network, devices, logger, res)
	res.devices = r.collectInventory(ctx, network, devices, statuses, logger)

	return res
}

// collectClients runs the filtered-clients task for one network.
// An empty client list is a normal outcome, not an error.
func (r *Runner) collectClients(ctx context.Context, network meraki.Network, logger *slog.Logger, res *networkResult) []model.ClientRecord {
	clients, err := r.dash.GetNetworkClients(ctx, network.ID, r.opts.Lookback)
	if err != nil {
		res.warnings = append(res.warnings, fmt.Sprintf("network %s: list clients: %v", network.Name, err))
		logger.Warn("client listing failed", "error", err)
		return nil
	}

	var matched []model.ClientRecord
	for _, client := range clients {
		if !matchesClient(client, r.opts.Manufacturers, r.opts.MACPrefix) {
			continue
		}
		matched = append(matched, model.ClientRecord{
			Network:      network.Name,
			Description:  client.Description,
			MAC:          client.MAC,
			IP:           client.IP,
			Manufacturer: client.Manufacturer,
			OS:           client.OS,
			VLAN:         client.VLAN,
			Status:       client.Status,
			LastSeen:     client.LastSeen,
		})
	}

	logger.Debug("clients scanned", "total", len(clients), "matched", len(matched))
	return matched
}

// collectAccessPorts runs the VLAN access-port task for one network.
// Networks without switches simply produce no records. A switch whose
// port query fails is skipped with a warning rather than failing the run.
func (r *Runner) collectAccessPorts(ctx context.Context, network meraki.Network, devices []meraki.Device, logger *slog.Logger, res *networkResult) []model.AccessPortRecord {
	var records []model.AccessPortRecord

	for _, device := range devices {
		if !isSwitch(device) {
			continue
		}

		ports, err := r.dash.GetDeviceSwitchPorts(ctx, device.Serial)
		if err != nil {
			res.warnings = append(res.warnings, fmt.Sprintf("switch %s: list ports: %v", device.Serial, err))
			logger.Warn("port listing failed", "serial", device.Serial, "error", err)
			continue
		}

		for _, port := range ports {
			if !isTargetAccessPort(port, r.opts.TargetVLAN) {
				continue
			}
			records = append(records, model.AccessPortRecord{
				Network:      network.Name,
				SwitchName:   device.Name,
				SwitchSerial: device.Serial,
				SwitchModel:  device.Model,
				PortID:       port.PortID,
				PortName:     port.Name,
				VLAN:         port.VLAN,
				PoEEnabled:   port.PoEEnabled,
				LinkStatus:   port.LinkNegotiation,
			})
		}
	}

	return records
}

// collectInventory runs the device-inventory task for one network.
// Uplink queries are best effort: many device types reject them.
func (r *Runner) collectInventory(ctx context.Context, network meraki.Network, devices []meraki.Device, statuses map[string]meraki.DeviceStatus, logger *slog.Logger) []model.DeviceRecord {
	records := make([]model.DeviceRecord, 0, len(devices))

	for _, device := range devices {
		record := model.DeviceRecord{
			Network:  network.Name,
			Name:     device.Name,
			Serial:   device.Serial,
			Model:    device.Model,
			MAC:      device.MAC,
			Firmware: device.Firmware,
			LANIP:    device.LANIP,
			Tags:     device.Tags,
			Status:   "unknown",
		}

		if status, ok := statuses[device.Serial]; ok {
			if status.Status != "" {
				record.Status = status.Status
			}
			record.LastReportedAt = status.LastReportedAt
		}

		if uplinks, err := r.dash.GetDeviceUplinks(ctx, device.Serial); err == nil {
			record.Uptime = firstUptime(uplinks)
		} else if !errors.Is(err, meraki.ErrNotFound) {
			logger.Debug("uplink query failed", "serial", device.Serial, "error", err)
		}

		records = append(records, record)
	}

	return records
}

// aggregate merges per-network results sorted by network name so runs are
// deterministic regardless of scan completion order.
func (r *Runner) aggregate(orgID string, results []*networkResult) *model.AuditResult {
	sorted := make([]*networkResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			sorted = append(sorted, res)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].networkName < sorted[j].networkName
	})

	result := &model.AuditResult{
		Timestamp:       time.Now().UTC(),
		OrgID:           orgID,
		FilteredClients: []model.ClientRecord{},
		AccessPorts:     []model.AccessPortRecord{},
		DeviceInventory: []model.DeviceRecord{},
	}

	for _, res := range sorted {
		result.FilteredClients = append(result.FilteredClients, res.clients...)
		result.AccessPorts = append(result.AccessPorts, res.ports...)
		result.DeviceInventory = append(result.DeviceInventory, res.devices...)
		result.Warnings = append(result.Warnings, res.warnings...)
	}

	return result
}

// firstUptime returns the first non-empty uptime among a device's uplinks.
func firstUptime(uplinks []meraki.Uplink) string {
	for _, uplink := range uplinks {
		if uplink.Uptime != "" {
			return uplink.Uptime
		}
	}
	return ""
}
