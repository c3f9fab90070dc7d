package meraki

// Organization is an organization visible to the API key.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Network is a network within an organization.
type Network struct {
	ID           string   `json:"id"`
	OrgID        string   `json:"organizationId"`
	Name         string   `json:"name"`
	ProductTypes []string `json:"productTypes,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	TimeZone     string   `json:"timeZone,omitempty"`
}

// Device is a device claimed into a network.
type Device struct {
	Serial    string   `json:"serial"`
	Name      string   `json:"name,omitempty"`
	Model     string   `json:"model,omitempty"`
	MAC       string   `json:"mac,omitempty"`
	Firmware  string   `json:"firmware,omitempty"`
	LANIP     string   `json:"lanIp,omitempty"`
	NetworkID string   `json:"networkId,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// DeviceStatus is an org-level device status record.
type DeviceStatus struct {
	Serial         string `json:"serial"`
	Status         string `json:"status,omitempty"`
	LastReportedAt string `json:"lastReportedAt,omitempty"`
}

// NetworkClient is a client seen on a network within the lookback window.
type NetworkClient struct {
	ID           string `json:"id"`
	Description  string `json:"description,omitempty"`
	MAC          string `json:"mac"`
	IP           string `json:"ip,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	OS           string `json:"os,omitempty"`
	VLAN         int    `json:"vlan,omitempty"`
	Status       string `json:"status,omitempty"`
	LastSeen     string `json:"lastSeen,omitempty"`
}

// SwitchPort is a port configuration on an MS switch.
type SwitchPort struct {
	PortID          string `json:"portId"`
	Name            string `json:"name,omitempty"`
	Type            string `json:"type,omitempty"` // "access" or "trunk"
	VLAN            int    `json:"vlan,omitempty"`
	Enabled         bool   `json:"enabled"`
	PoEEnabled      bool   `json:"poeEnabled"`
	LinkNegotiation string `json:"linkNegotiation,omitempty"`
}

// Uplink is an uplink status entry for a device.
type Uplink struct {
	Interface string `json:"interface,omitempty"`
	Status    string `json:"status,omitempty"`
	IP        string `json:"ip,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}
