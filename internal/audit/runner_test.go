package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
)

// fakeDashboard implements Dashboard for tests.
type fakeDashboard struct {
	orgs     []meraki.Organization
	orgsErr  error
	networks map[string][]meraki.Network
	netsErr  error
	statuses []meraki.DeviceStatus
	statErr  error
	clients  map[string][]meraki.NetworkClient
	devices  map[string][]meraki.Device
	ports    map[string][]meraki.SwitchPort
	portsErr map[string]error
	uplinks  map[string][]meraki.Uplink
}

func (f *fakeDashboard) GetOrganizations(ctx context.Context) ([]meraki.Organization, error) {
	return f.orgs, f.orgsErr
}

func (f *fakeDashboard) GetOrganizationNetworks(ctx context.Context, orgID string) ([]meraki.Network, error) {
	if f.netsErr != nil {
		return nil, f.netsErr
	}
	return f.networks[orgID], nil
}

func (f *fakeDashboard) GetOrganizationDeviceStatuses(ctx context.Context, orgID string, serials []string) ([]meraki.DeviceStatus, error) {
	return f.statuses, f.statErr
}

func (f *fakeDashboard) GetNetworkClients(ctx context.Context, networkID string, lookback time.Duration) ([]meraki.NetworkClient, error) {
	return f.clients[networkID], nil
}

func (f *fakeDashboard) GetNetworkDevices(ctx context.Context, networkID string) ([]meraki.Device, error) {
	return f.devices[networkID], nil
}

func (f *fakeDashboard) GetDeviceSwitchPorts(ctx context.Context, serial string) ([]meraki.SwitchPort, error) {
	if err := f.portsErr[serial]; err != nil {
		return nil, err
	}
	return f.ports[serial], nil
}

func (f *fakeDashboard) GetDeviceUplinks(ctx context.Context, serial string) ([]meraki.Uplink, error) {
	if uplinks, ok := f.uplinks[serial]; ok {
		return uplinks, nil
	}
	return nil, &meraki.APIError{StatusCode: 404, Method: "GET", Path: "/devices/" + serial + "/uplink"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		OrgID:         "549236",
		Manufacturers: []string{"Dell", "Adrenaline", "Nintendo"},
		MACPrefix:     "50a4.d0",
		TargetVLAN:    10,
		Lookback:      720 * time.Hour,
	}
}

func newTestDashboard() *fakeDashboard {
	return &fakeDashboard{
		networks: map[string][]meraki.Network{
			"549236": {
				{ID: "N_2", OrgID: "549236", Name: "Warehouse"},
				{ID: "N_1", OrgID: "549236", Name: "HQ"},
			},
		},
		statuses: []meraki.DeviceStatus{
			{Serial: "Q2SW-AAAA-0001", Status: "online", LastReportedAt: "2024-05-01T10:00:00Z"},
			{Serial: "Q2MX-BBBB-0001", Status: "offline", LastReportedAt: "2024-04-30T22:00:00Z"},
		},
		clients: map[string][]meraki.NetworkClient{
			"N_1": {
				{MAC: "50:a4:d0:11:22:33", IP: "10.0.0.5", Manufacturer: "Apple", VLAN: 10},
				{MAC: "aa:bb:cc:dd:ee:ff", IP: "10.0.0.6", Manufacturer: "Dell Inc.", VLAN: 20},
				{MAC: "11:22:33:44:55:66", IP: "10.0.0.7", Manufacturer: "HP", VLAN: 10},
			},
			"N_2": {
				{MAC: "bb:cc:dd:ee:ff:00", Manufacturer: "Nintendo Co., Ltd."},
			},
		},
		devices: map[string][]meraki.Device{
			"N_1": {
				{Serial: "Q2SW-AAAA-0001", Name: "hq-sw-1", Model: "MS225-48LP", MAC: "e0:55:3d:10:00:01", Firmware: "ms-15.21", LANIP: "10.0.1.2"},
				{Serial: "Q2MX-BBBB-0001", Name: "hq-mx", Model: "MX84", MAC: "e0:55:3d:10:00:02", Firmware: "mx-18.107"},
			},
			"N_2": {}, // network without switches
		},
		ports: map[string][]meraki.SwitchPort{
			"Q2SW-AAAA-0001": {
				{PortID: "1", Type: "access", VLAN: 10, Enabled: true, PoEEnabled: true},
				{PortID: "2", Type: "access", VLAN: 20, Enabled: true},
				{PortID: "3", Type: "trunk", VLAN: 10, Enabled: true},
				{PortID: "4", Type: "access", VLAN: 10, Enabled: false},
			},
		},
		uplinks: map[string][]meraki.Uplink{
			"Q2MX-BBBB-0001": {{Interface: "wan1", Status: "active", Uptime: "12 days"}},
		},
	}
}

func TestRunner_Run(t *testing.T) {
	dash := newTestDashboard()
	runner := NewRunner(dash, testLogger(), nil, testOptions())

	result, err := runner.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Three matching clients: one by MAC, one Dell, one Nintendo.
	if len(result.FilteredClients) != 3 {
		t.Fatalf("FilteredClients = %d, want 3", len(result.FilteredClients))
	}

	// Only port 1 is an enabled access port on VLAN 10.
	if len(result.AccessPorts) != 1 {
		t.Fatalf("AccessPorts = %d, want 1", len(result.AccessPorts))
	}
	port := result.AccessPorts[0]
	if port.PortID != "1" || port.SwitchSerial != "Q2SW-AAAA-0001" || !port.PoEEnabled {
		t.Errorf("unexpected access port record: %+v", port)
	}

	if len(result.DeviceInventory) != 2 {
		t.Fatalf("DeviceInventory = %d, want 2", len(result.DeviceInventory))
	}

	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
}

func TestRunner_Run_DeterministicNetworkOrder(t *testing.T) {
	dash := newTestDashboard()
	runner := NewRunner(dash, testLogger(), nil, testOptions())

	result, err := runner.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// HQ sorts before Warehouse regardless of API order.
	if result.FilteredClients[0].Network != "HQ" {
		t.Errorf("first client network = %s, want HQ", result.FilteredClients[0].Network)
	}
	last := result.FilteredClients[len(result.FilteredClients)-1]
	if last.Network != "Warehouse" {
		t.Errorf("last client network = %s, want Warehouse", last.Network)
	}
}

func TestRunner_Run_StatusEnrichment(t *testing.T) {
	dash := newTestDashboard()
	runner := NewRunner(dash, testLogger(), nil, testOptions())

	result, err := runner.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	byserial := make(map[string]string)
	uptimes := make(map[string]string)
	for _, device := range result.DeviceInventory {
		byserial[device.Serial] = device.Status
		uptimes[device.Serial] = device.Uptime
	}

	if byserial["Q2SW-AAAA-0001"] != "online" {
		t.Errorf("switch status = %s, want online", byserial["Q2SW-AAAA-0001"])
	}
	if byserial["Q2MX-BBBB-0001"] != "offline" {
		t.Errorf("mx status = %s, want offline", byserial["Q2MX-BBBB-0001"])
	}
	// Uplink data exists only for the MX; the switch rejects the query.
	if uptimes["Q2MX-BBBB-0001"] != "12 days" {
		t.Errorf("mx uptime = %s, want '12 days'", uptimes["Q2MX-BBBB-0001"])
	}
	if uptimes["Q2SW-AAAA-0001"] != "" {
		t.Errorf("switch uptime = %s, want empty", uptimes["Q2SW-AAAA-0001"])
	}
}

func TestRunner_Run_StatusLookupFailureDegrades(t *testing.T) {
	dash := newTestDashboard()
	dash.statErr = errors.New("boom")
	runner := NewRunner(dash, testLogger(), nil, testOptions())

	result, err := runner.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, device := range result.DeviceInventory {
		if device.Status != "unknown" {
			t.Errorf("device %s status = %s, want unknown", device.Serial, device.Status)
		}
	}
}

func TestRunner_Run_SwitchPortFailureIsWarning(t *testing.T) {
	dash := newTestDashboard()
	dash.portsErr = map[string]error{"Q2SW-AAAA-0001": errors.New("timeout")}
	runner := NewRunner(dash, testLogger(), nil, testOptions())

	result, err := runner.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run should not fail on a single switch error: %v", err)
	}

	if len(result.AccessPorts) != 0 {
		t.Errorf("AccessPorts = %d, want 0", len(result.AccessPorts))
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %d, want 1: %v", len(result.Warnings), result.Warnings)
	}
}

func TestRunner_Run_NetworkListFailureFailsRun(t *testing.T) {
	dash := newTestDashboard()
	dash.netsErr = &meraki.APIError{StatusCode: 404, Method: "GET", Path: "/organizations/999/networks"}
	runner := NewRunner(dash, testLogger(), nil, testOptions())

	_, err := runner.Run(context.Background(), "999")
	if err == nil {
		t.Fatal("expected error for inaccessible organization")
	}
	if !errors.Is(err, meraki.ErrNotFound) {
		t.Errorf("expected ErrNotFound in chain, got %v", err)
	}
}

func TestRunner_ResolveOrg(t *testing.T) {
	tests := []struct {
		name    string
		orgs    []meraki.Organization
		orgsErr error
		wantID  string
		wantErr bool
	}{
		{"single org discovered", []meraki.Organization{{ID: "1", Name: "Acme"}}, nil, "1", false},
		{"no orgs", nil, nil, "", true},
		{"multiple orgs ambiguous", []meraki.Organization{{ID: "1"}, {ID: "2"}}, nil, "", true},
		{"discovery error", nil, errors.New("unauthorized"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := &fakeDashboard{orgs: tt.orgs, orgsErr: tt.orgsErr}
			runner := NewRunner(dash, testLogger(), nil, Options{})

			id, err := runner.resolveOrg(context.Background(), "")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveOrg: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("resolveOrg = %s, want %s", id, tt.wantID)
			}
		})
	}
}

func TestRunner_ResolveOrg_ExplicitWins(t *testing.T) {
	dash := &fakeDashboard{orgsErr: errors.New("should not be called")}
	runner := NewRunner(dash, testLogger(), nil, Options{})

	id, err := runner.resolveOrg(context.Background(), "549236")
	if err != nil {
		t.Fatalf("resolveOrg: %v", err)
	}
	if id != "549236" {
		t.Errorf("resolveOrg = %s, want 549236", id)
	}
}
