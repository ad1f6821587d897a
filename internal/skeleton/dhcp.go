// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package skeleton

import (
	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv6"
)

// DHCPPorts carries the canonical client/server port numbers for DHCPv4 and
// DHCPv6, sourced from insomniacslk/dhcp rather than hardcoded, for the
// `allow-dhcp-*` bridge-table chains (§6.3). The DHCPfwd/DHCPv6 macro
// fragments in internal/model carry their own literal port numbers and do
// not use this table.
type DHCPPorts struct {
	V4Client uint16
	V4Server uint16
	V6Client uint16
	V6Server uint16
}

// CanonicalDHCPPorts returns the standard DHCPv4/DHCPv6 port assignment.
func CanonicalDHCPPorts() DHCPPorts {
	return DHCPPorts{
		V4Client: uint16(dhcpv4.ClientPort),
		V4Server: uint16(dhcpv4.ServerPort),
		V6Client: uint16(dhcpv6.DefaultClientPort),
		V6Server: uint16(dhcpv6.DefaultServerPort),
	}
}
