// Package netadapter manages network adapters through the OS management
// interface: enumeration, enable/disable, batch operations and the
// mutually-exclusive switch between two designated adapters.
package netadapter

import "time"

// AdapterType classifies the physical medium of an adapter.
type AdapterType int

const (
	TypeUnknown AdapterType = iota
	TypeEthernet
	TypeWireless
)

// String returns a display name for the type.
func (t AdapterType) String() string {
	switch t {
	case TypeEthernet:
		return "ethernet"
	case TypeWireless:
		return "wireless"
	default:
		return "unknown"
	}
}

// Adapter is a snapshot of one network adapter. Snapshots are sourced fresh
// from the OS on every query and are never cached across refreshes.
type Adapter struct {
	DeviceID    string      `json:"deviceId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        AdapterType `json:"type"`
	Enabled     bool        `json:"enabled"`
	Status      string      `json:"status"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// connectionStatusText maps Win32_NetworkAdapter.NetConnectionStatus values
// to readable strings.
var connectionStatusText = map[uint16]string{
	0:  "Disconnected",
	1:  "Connecting",
	2:  "Connected",
	3:  "Disconnecting",
	4:  "Hardware not present",
	5:  "Hardware disabled",
	6:  "Hardware malfunction",
	7:  "Media disconnected",
	8:  "Authenticating",
	9:  "Authentication succeeded",
	10: "Authentication failed",
	11: "Invalid address",
	12: "Credentials required",
}

// statusText resolves a NetConnectionStatus code to a readable string.
func statusText(code uint16) string {
	if s, ok := connectionStatusText[code]; ok {
		return s
	}
	return "Unknown"
}

// adapterTypeFromID maps Win32_NetworkAdapter.AdapterTypeID to AdapterType.
func adapterTypeFromID(id uint16) AdapterType {
	switch id {
	case 0: // Ethernet 802.3
		return TypeEthernet
	case 9: // Wireless
		return TypeWireless
	default:
		return TypeUnknown
	}
}
