// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"fmt"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	"github.com/proxmox/proxmox-firewall/internal/valuegrammar"
)

// GuestKind distinguishes a QEMU VM from an LXC container (§3).
type GuestKind string

const (
	GuestKindQemu GuestKind = "qemu"
	GuestKindLXC  GuestKind = "lxc"
)

// GuestOptions are the per-guest feature flags and policy settings §3 lists.
type GuestOptions struct {
	Enable    bool
	NDP       bool
	IPFilter  bool
	DHCP      bool
	MACFilter bool

	PolicyIn  valuegrammar.Policy
	PolicyOut valuegrammar.Policy

	LogLevelIn  valuegrammar.LogLevel
	LogLevelOut valuegrammar.LogLevel
}

// NIC is one virtual network interface attached to a Guest (§3, §4.F).
type NIC struct {
	// Name is the guest-facing slot name, e.g. "net0".
	Name string
	// Index is the NIC's numeric slot (0 for "net0"), used to synthesize
	// ipfilter-netN set names and the per-NIC chain name.
	Index int

	IfaceName string // e.g. "tapXi0" or "vethXiY"
	MAC       addrport.Address
	IP4       *addrport.Address
	IP6       *addrport.Address
	Bridge    string
	VLANTag   int // 0 means untagged

	FirewallEnabled bool

	// Altname is an alternate interface name the kernel may report after a
	// rename; both names must map to the same chain in vm-map-in/out.
	Altname string
}

// IPFilterSetName returns the synthesized per-NIC IP-set name
// "ipfilter-netN" (§3's ipfilter synthesis rule).
func (n NIC) IPFilterSetName() string {
	return fmt.Sprintf("ipfilter-net%d", n.Index)
}

// Guest is one QEMU VM or LXC container (§3).
type Guest struct {
	VMID    int
	Kind    GuestKind
	Options GuestOptions
	NICs    []NIC
	Rules   RuleTree
	Sets    []IPSet
}

// HasFirewallEnabledNIC reports whether the guest has at least one NIC with
// its firewall flag set — guests failing this test contribute no chains or
// map entries at all (§8 invariant 7, §3's "skipped silently" rule).
func (g Guest) HasFirewallEnabledNIC() bool {
	for _, n := range g.NICs {
		if n.FirewallEnabled {
			return true
		}
	}
	return false
}

// SynthesizeIPFilterSet builds the guest's "ipfilter-netN" set for a NIC
// from the NIC's own configured address, falling back to an IPAM lookup by
// MAC when the NIC carries no explicit IP (§4.F). It is a no-op (returns
// false) if the guest already defines an explicit set of that name, since an
// explicit definition always wins over synthesis.
func (g *Guest) SynthesizeIPFilterSet(nic NIC, ipam IPAMState) (IPSet, bool) {
	setName := nic.IPFilterSetName()
	for _, s := range g.Sets {
		if s.Name == setName {
			return IPSet{}, false
		}
	}

	var entries []IPSetEntry
	if nic.IP4 != nil {
		entries = append(entries, IPSetEntry{Kind: IPSetEntryAddress, Address: *nic.IP4})
	}
	if nic.IP6 != nil {
		entries = append(entries, IPSetEntry{Kind: IPSetEntryAddress, Address: *nic.IP6})
	}
	if len(entries) == 0 {
		if addrs, ok := ipam.LookupByMAC(nic.MAC); ok {
			for _, a := range addrs {
				entries = append(entries, IPSetEntry{Kind: IPSetEntryAddress, Address: a})
			}
		}
	}

	set := IPSet{Scope: ScopeGuest, Name: setName, Entries: entries}
	return set, true
}

// VNet is one SDN virtual network (§3, §4.F).
type VNet struct {
	Name            string
	Bridge          string
	Zone            string
	FirewallEnabled bool
	Rules           RuleTree
	Sets            []IPSet
}

// IPAMState is the IPAM inventory contract (§6.1): current address
// allocations keyed by MAC or by VNet.
type IPAMState struct {
	byMAC  map[string][]addrport.Address
	byVNet map[string][]addrport.Address
}

// NewIPAMState builds an IPAMState from byMAC and byVNet maps. Keys of
// byMAC are the lowercase, colon-separated MAC text form.
func NewIPAMState(byMAC map[string][]addrport.Address, byVNet map[string][]addrport.Address) IPAMState {
	if byMAC == nil {
		byMAC = map[string][]addrport.Address{}
	}
	if byVNet == nil {
		byVNet = map[string][]addrport.Address{}
	}
	return IPAMState{byMAC: byMAC, byVNet: byVNet}
}

// LookupByMAC returns the addresses IPAM has allocated to mac, if any.
func (s IPAMState) LookupByMAC(mac addrport.Address) ([]addrport.Address, bool) {
	if mac.Family != addrport.FamilyMAC {
		return nil, false
	}
	addrs, ok := s.byMAC[mac.MAC.String()]
	return addrs, ok
}

// AllocatedAddresses returns every address IPAM has allocated within vnet,
// used to build the VNet's auto-generated in-use-addresses IP set (§4.F).
func (s IPAMState) AllocatedAddresses(vnet string) []addrport.Address {
	return s.byVNet[vnet]
}

// AllocatedSetName is the fixed name of a VNet's IPAM-sourced set.
func (v VNet) AllocatedSetName() string {
	return fmt.Sprintf("%s-allocated", v.Name)
}
