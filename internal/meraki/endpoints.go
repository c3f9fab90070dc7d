package meraki

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// GetOrganizations lists the organizations visible to the API key.
func (c *Client) GetOrganizations(ctx context.Context) ([]Organization, error) {
	return getList[Organization](ctx, c, "/organizations", nil)
}

// GetOrganization fetches a single organization.
// A foreign or unknown ID surfaces as ErrNotFound.
func (c *Client) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	var org Organization
	if err := c.get(ctx, "/organizations/"+url.PathEscape(orgID), nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganizationNetworks lists all networks in an organization.
func (c *Client) GetOrganizationNetworks(ctx context.Context, orgID string) ([]Network, error) {
	return getList[Network](ctx, c, "/organizations/"+url.PathEscape(orgID)+"/networks", nil)
}

// GetOrganizationDeviceStatuses fetches org-level status records for the
// given serials. An empty serial list fetches all devices.
func (c *Client) GetOrganizationDeviceStatuses(ctx context.Context, orgID string, serials []string) ([]DeviceStatus, error) {
	query := url.Values{}
	for _, serial := range serials {
		query.Add("serials[]", serial)
	}
	return getList[DeviceStatus](ctx, c, "/organizations/"+url.PathEscape(orgID)+"/devices/statuses", query)
}

// GetNetworkClients lists clients seen on a network within the lookback
// window.
func (c *Client) GetNetworkClients(ctx context.Context, networkID string, lookback time.Duration) ([]NetworkClient, error) {
	query := url.Values{}
	if lookback > 0 {
		query.Set("timespan", fmt.Sprintf("%d", int(lookback.Seconds())))
	}
	return getList[NetworkClient](ctx, c, "/networks/"+url.PathEscape(networkID)+"/clients", query)
}

// GetNetworkDevices lists the devices claimed into a network.
func (c *Client) GetNetworkDevices(ctx context.Context, networkID string) ([]Device, error) {
	var devices []Device
	if err := c.get(ctx, "/networks/"+url.PathEscape(networkID)+"/devices", nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// GetDeviceSwitchPorts lists the port configurations of an MS switch.
func (c *Client) GetDeviceSwitchPorts(ctx context.Context, serial string) ([]SwitchPort, error) {
	var ports []SwitchPort
	if err := c.get(ctx, "/devices/"+url.PathEscape(serial)+"/switch/ports", nil, &ports); err != nil {
		return nil, err
	}
	return ports, nil
}

// GetDeviceUplinks fetches uplink status for a device. Not every device
// type supports uplink queries; callers should treat ErrNotFound as
// "no uplink data" rather than a failure.
func (c *Client) GetDeviceUplinks(ctx context.Context, serial string) ([]Uplink, error) {
	var uplinks []Uplink
	if err := c.get(ctx, "/devices/"+url.PathEscape(serial)+"/uplink", nil, &uplinks); err != nil {
		return nil, err
	}
	return uplinks, nil
}

// UpdateDeviceTags replaces a device's tags.
func (c *Client) UpdateDeviceTags(ctx context.Context, serial string, tags []string) (*Device, error) {
	payload := struct {
		Tags []string `json:"tags"`
	}{Tags: tags}

	var device Device
	if err := c.put(ctx, "/devices/"+url.PathEscape(serial), payload, &device); err != nil {
		return nil, err
	}
	return &device, nil
}
