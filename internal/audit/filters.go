// Package audit implements the organization audit: filtered clients,
// VLAN access ports, and device inventory across every network.
package audit

import (
	"strings"

	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
)

// switchModelPrefix identifies MS-family switches by model name.
const switchModelPrefix = "MS"

// normalizeMAC lowercases a MAC address and strips separator characters
// so "50:A4:D0:12:34:56", "50-a4-d0-12-34-56" and "50a4.d012.3456" all
// reduce to the same string.
func normalizeMAC(mac string) string {
	var b strings.Builder
	b.Grow(len(mac))
	for _, c := range strings.ToLower(mac) {
		switch c {
		case ':', '-', '.':
			continue
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// matchesMACPrefix reports whether a MAC address contains the configured
// prefix after both sides are normalized.
func matchesMACPrefix(mac, prefix string) bool {
	if prefix == "" {
		return false
	}
	return strings.Contains(normalizeMAC(mac), normalizeMAC(prefix))
}

// matchesManufacturer reports whether the manufacturer matches any of the
// targets, case-insensitively by substring. Clients with no manufacturer
// never match here; they can still match by MAC.
func matchesManufacturer(manufacturer string, targets []string) bool {
	if manufacturer == "" {
		return false
	}
	lower := strings.ToLower(manufacturer)
	for _, target := range targets {
		if target == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(target)) {
			return true
		}
	}
	return false
}

// matchesClient applies the combined client filter.
func matchesClient(client meraki.NetworkClient, manufacturers []string, macPrefix string) bool {
	return matchesManufacturer(client.Manufacturer, manufacturers) ||
		matchesMACPrefix(client.MAC, macPrefix)
}

// isTargetAccessPort reports whether a port is an enabled access-mode port
// on the target VLAN. Trunk ports never match.
func isTargetAccessPort(port meraki.SwitchPort, vlan int) bool {
	return port.Type == "access" && port.VLAN == vlan && port.Enabled
}

// isSwitch reports whether a device is an MS-family switch.
func isSwitch(device meraki.Device) bool {
	return strings.HasPrefix(device.Model, switchModelPrefix)
}
