// Package model defines domain entities for the application.
package model

import "time"

// RunStatus represents the lifecycle state of an audit run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal returns true once the run can no longer change state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// ClientRecord is a client that matched the audit's manufacturer or MAC
// filters.
type ClientRecord struct {
	Network      string `json:"network"`
	Description  string `json:"description,omitempty"`
	MAC          string `json:"mac"`
	IP           string `json:"ip,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	OS           string `json:"os,omitempty"`
	VLAN         int    `json:"vlan,omitempty"`
	Status       string `json:"status,omitempty"`
	LastSeen     string `json:"lastSeen,omitempty"`
}

// AccessPortRecord is an enabled access-mode switch port on the target VLAN.
type AccessPortRecord struct {
	Network      string `json:"network"`
	SwitchName   string `json:"switch_name"`
	SwitchSerial string `json:"switch_serial"`
	SwitchModel  string `json:"switch_model"`
	PortID       string `json:"port_id"`
	PortName     string `json:"port_name,omitempty"`
	VLAN         int    `json:"vlan"`
	PoEEnabled   bool   `json:"poe_enabled"`
	LinkStatus   string `json:"link_status,omitempty"`
}

// DeviceRecord is an inventory entry for one device.
type DeviceRecord struct {
	Network        string   `json:"network"`
	Name           string   `json:"name,omitempty"`
	Serial         string   `json:"serial"`
	Model          string   `json:"model,omitempty"`
	MAC            string   `json:"mac,omitempty"`
	Firmware       string   `json:"firmware,omitempty"`
	LANIP          string   `json:"lan_ip,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Status         string   `json:"status"`
	LastReportedAt string   `json:"last_reported_at,omitempty"`
	Uptime         string   `json:"uptime,omitempty"`
}

// AuditResult is the aggregate outcome of one audit run.
type AuditResult struct {
	Timestamp       time.Time          `json:"timestamp"`
	OrgID           string             `json:"org_id"`
	FilteredClients []ClientRecord     `json:"filtered_clients"`
	AccessPorts     []AccessPortRecord `json:"vlan_access_ports"`
	DeviceInventory []DeviceRecord     `json:"device_inventory"`
	// Warnings records per-network failures that did not abort the run,
	// e.g. a switch that rejected the port query.
	Warnings []string `json:"warnings,omitempty"`
}

// Summary condenses a result into counts.
func (r *AuditResult) Summary() RunSummary {
	return RunSummary{
		FilteredClients: len(r.FilteredClients),
		AccessPorts:     len(r.AccessPorts),
		Devices:         len(r.DeviceInventory),
		Warnings:        len(r.Warnings),
	}
}

// RunSummary holds result counts for listings and logs.
type RunSummary struct {
	FilteredClients int `json:"filtered_clients"`
	AccessPorts     int `json:"vlan_access_ports"`
	Devices         int `json:"devices"`
	Warnings        int `json:"warnings"`
}

// AuditRun is a persisted audit run (service mode).
type AuditRun struct {
	ID          string      `json:"id"`
	OrgID       string      `json:"org_id"`
	Status      RunStatus   `json:"status"`
	RequestedBy string      `json:"requested_by,omitempty"`
	Error       string      `json:"error,omitempty"`
	Summary     *RunSummary `json:"summary,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
