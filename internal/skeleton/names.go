// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package skeleton holds the static baseline chain catalogue §6.3 and §4.J
// fix: the chains that exist identically on every compile cycle, recreated
// by flush-then-refill rather than diffed (§4.J's deliberate
// simplification). Per-guest and per-VNet chains are dynamic and are built
// by internal/compiler, not here.
package skeleton

import "strconv"

// InetTableName and BridgeTableName are the two managed tables (§6.3).
const (
	InetTableName   = "proxmox-firewall"
	BridgeTableName = "proxmox-firewall-guests"
)

// InetChains is the complete, fixed list of baseline chains in
// `inet proxmox-firewall` (§6.3).
var InetChains = []string{
	"do-reject",
	"accept-management",
	"block-synflood",
	"ratelimit-synflood",
	"log-invalid-tcp",
	"log-drop-invalid-tcp",
	"block-invalid-tcp",
	"allow-ndp-in",
	"block-ndp-in",
	"allow-ndp-out",
	"block-ndp-out",
	"block-conntrack-invalid",
	"block-smurfs",
	"log-smurfs",
	"log-drop-smurfs",
	"default-in",
	"default-out",
	"option-in",
	"option-out",
	"input",
	"output",
	"cluster-in",
	"cluster-out",
	"host-in",
	"host-out",
	"ct-in",
}

// BridgeChains is the complete, fixed list of baseline chains in
// `bridge proxmox-firewall-guests` (§6.3). Per-NIC and per-VNet chains are
// not listed here: they're named dynamically by internal/compiler from
// guest/VNet identity.
var BridgeChains = []string{
	"allow-dhcp-in",
	"block-dhcp-in",
	"allow-dhcp-out",
	"block-dhcp-out",
	"allow-ndp-in",
	"block-ndp-in",
	"allow-ndp-out",
	"block-ndp-out",
	"allow-ra-out",
	"block-ra-out",
	"after-vm-in",
	"do-reject",
	"vm-out",
	"vm-in",
}

// GuestChainName returns the deterministic per-NIC chain name for a firewall
// guest NIC (§8 invariant 4: "a deterministic function of (scope, kind,
// direction, id)", §4.H step 6).
func GuestChainName(vmid int, nicIndex int, direction string) string {
	return "guest-" + strconv.Itoa(vmid) + "-" + strconv.Itoa(nicIndex) + "-" + direction
}

// GuestForwardChainName returns the deterministic FORWARD chain name for a
// guest NIC (§4.H step 6).
func GuestForwardChainName(vmid int, nicIndex int) string {
	return "guest-" + strconv.Itoa(vmid) + "-" + strconv.Itoa(nicIndex) + "-fwd"
}

// VNetForwardChainName returns the deterministic FORWARD chain name for a
// VNet (§4.H step 7).
func VNetForwardChainName(vnetName string) string {
	return "vnet-" + vnetName + "-fwd"
}
