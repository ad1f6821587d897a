// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package inventory names the contracts spec.md §6.1 assigns to external
// collaborators: the guest config reader, the SDN VNet config reader, and
// the IPAM state reader. None of them is implemented here in earnest — a
// real deployment's implementations talk to the Proxmox API, the SDN
// config store, and the cluster's IPAM plugin, none of which this repo
// ships a client for (spec.md §1's "out of scope: external collaborators").
// internal/inventory/fixture provides the one concrete implementation this
// repo does ship: a YAML-described snapshot, used by compiler tests and by
// cmd/pf-compile for standalone runs in place of a real Proxmox cluster.
package inventory

import (
	"context"

	"github.com/proxmox/proxmox-firewall/internal/model"
)

// GuestProvider supplies the structural half of each guest's data that
// spec.md §3 says comes from Proxmox's own guest configuration: vmid, kind,
// and NIC list (interface name, MAC, bridge, VLAN tag, firewall flag,
// altname). It never supplies options/rules/sets — those come from the
// guest's own `<vmid>.fw` overlay file via internal/legacyfmt.
type GuestProvider interface {
	Guests(ctx context.Context) ([]model.Guest, error)
}

// VNetProvider supplies the structural half of each VNet's data the SDN
// config store owns: name, bridge, zone, and whether its firewall is
// enabled. Rules/sets come from the VNet's own overlay file.
type VNetProvider interface {
	VNets(ctx context.Context) ([]model.VNet, error)
}

// IPAMProvider supplies the cluster's current address allocations, keyed by
// MAC (for per-NIC ipfilter synthesis, §3) and by VNet (for the
// auto-generated allocated-address set, §4.F).
type IPAMProvider interface {
	IPAM(ctx context.Context) (model.IPAMState, error)
}

// Providers bundles the three contracts one reconcile cycle needs.
type Providers struct {
	Guests GuestProvider
	VNets  VNetProvider
	IPAM   IPAMProvider
}
