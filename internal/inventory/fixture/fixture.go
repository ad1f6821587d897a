// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fixture loads a YAML-described inventory snapshot and exposes it
// through the internal/inventory contracts (GuestProvider, VNetProvider,
// IPAMProvider). It supplies only the structural facts those contracts own
// per spec.md §6.1 (vmid/kind/NICs, VNet bridge/zone, IPAM allocations) —
// never options, rules, or IP sets, which always come from a guest or VNet's
// own legacy overlay file (internal/legacyfmt). Grounded on the teacher's
// YAML-fixture-driven table tests (gopkg.in/yaml.v3 is already a direct
// teacher dependency); used both by internal/reconcile's tests and by
// cmd/pf-compile as the one concrete provider this repo ships in
// place of a real Proxmox/SDN/IPAM client.
package fixture

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/model"
)

// nicDoc is one NIC entry's on-disk shape.
type nicDoc struct {
	Name            string `yaml:"name"`
	Index           int    `yaml:"index"`
	IfaceName       string `yaml:"iface_name"`
	MAC             string `yaml:"mac"`
	IP4             string `yaml:"ip4,omitempty"`
	IP6             string `yaml:"ip6,omitempty"`
	Bridge          string `yaml:"bridge"`
	VLANTag         int    `yaml:"vlan_tag,omitempty"`
	FirewallEnabled bool   `yaml:"firewall_enabled"`
	Altname         string `yaml:"altname,omitempty"`
}

// guestDoc is one guest's on-disk shape: vmid, kind, and NIC list only.
// Options/rules/sets are filled in separately from the guest's `<vmid>.fw`
// overlay (internal/legacyfmt.BuildGuestOverlay).
type guestDoc struct {
	VMID int      `yaml:"vmid"`
	Kind string   `yaml:"kind"`
	NICs []nicDoc `yaml:"nics"`
}

// vnetDoc is one VNet's on-disk shape: name, bridge, zone, and firewall
// flag only. Rules/sets come from the VNet's own overlay file.
type vnetDoc struct {
	Name            string `yaml:"name"`
	Bridge          string `yaml:"bridge"`
	Zone            string `yaml:"zone"`
	FirewallEnabled bool   `yaml:"firewall_enabled"`
}

// ipamDoc is the IPAM snapshot's on-disk shape: address lists keyed by MAC
// text and by VNet name.
type ipamDoc struct {
	ByMAC  map[string][]string `yaml:"by_mac"`
	ByVNet map[string][]string `yaml:"by_vnet"`
}

// doc is the top-level YAML document shape.
type doc struct {
	Guests []guestDoc `yaml:"guests"`
	VNets  []vnetDoc  `yaml:"vnets"`
	IPAM   ipamDoc    `yaml:"ipam"`
}

// Snapshot is a fully-decoded, address-parsed inventory fixture. It
// implements internal/inventory.GuestProvider, VNetProvider, and
// IPAMProvider directly — a Snapshot never does further I/O once loaded.
type Snapshot struct {
	guests []model.Guest
	vnets  []model.VNet
	ipam   model.IPAMState
}

// Load decodes a YAML fixture document from r.
func Load(r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, pferrors.Wrap(err, pferrors.KindInternal, "read fixture")
	}

	var d doc
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Snapshot{}, pferrors.Wrap(err, pferrors.KindValidation, "parse fixture yaml")
	}

	guests := make([]model.Guest, 0, len(d.Guests))
	for _, gd := range d.Guests {
		g, err := buildGuest(gd)
		if err != nil {
			return Snapshot{}, err
		}
		guests = append(guests, g)
	}

	vnets := make([]model.VNet, 0, len(d.VNets))
	for _, vd := range d.VNets {
		vnets = append(vnets, model.VNet{
			Name:            vd.Name,
			Bridge:          vd.Bridge,
			Zone:            vd.Zone,
			FirewallEnabled: vd.FirewallEnabled,
		})
	}

	byMAC := make(map[string][]addrport.Address, len(d.IPAM.ByMAC))
	for mac, addrs := range d.IPAM.ByMAC {
		key, err := addrport.ParseAddress(mac)
		if err != nil {
			return Snapshot{}, err
		}
		parsed, err := parseAddrList(addrs)
		if err != nil {
			return Snapshot{}, err
		}
		byMAC[key.MAC.String()] = parsed
	}
	byVNet := make(map[string][]addrport.Address, len(d.IPAM.ByVNet))
	for name, addrs := range d.IPAM.ByVNet {
		parsed, err := parseAddrList(addrs)
		if err != nil {
			return Snapshot{}, err
		}
		byVNet[name] = parsed
	}

	return Snapshot{
		guests: guests,
		vnets:  vnets,
		ipam:   model.NewIPAMState(byMAC, byVNet),
	}, nil
}

// LoadFile opens path and decodes it as a fixture document.
func LoadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, pferrors.Wrap(err, pferrors.KindInternal, fmt.Sprintf("open fixture %q", path))
	}
	defer f.Close()
	return Load(f)
}

func buildGuest(gd guestDoc) (model.Guest, error) {
	kind := model.GuestKindQemu
	if gd.Kind == string(model.GuestKindLXC) {
		kind = model.GuestKindLXC
	}

	nics := make([]model.NIC, 0, len(gd.NICs))
	for _, nd := range gd.NICs {
		mac, err := addrport.ParseAddress(nd.MAC)
		if err != nil {
			return model.Guest{}, err
		}

		var ip4, ip6 *addrport.Address
		if nd.IP4 != "" {
			a, err := addrport.ParseAddress(nd.IP4)
			if err != nil {
				return model.Guest{}, err
			}
			ip4 = &a
		}
		if nd.IP6 != "" {
			a, err := addrport.ParseAddress(nd.IP6)
			if err != nil {
				return model.Guest{}, err
			}
			ip6 = &a
		}

		nics = append(nics, model.NIC{
			Name:            nd.Name,
			Index:           nd.Index,
			IfaceName:       nd.IfaceName,
			MAC:             mac,
			IP4:             ip4,
			IP6:             ip6,
			Bridge:          nd.Bridge,
			VLANTag:         nd.VLANTag,
			FirewallEnabled: nd.FirewallEnabled,
			Altname:         nd.Altname,
		})
	}

	return model.Guest{VMID: gd.VMID, Kind: kind, NICs: nics}, nil
}

func parseAddrList(tokens []string) ([]addrport.Address, error) {
	out := make([]addrport.Address, 0, len(tokens))
	for _, tok := range tokens {
		a, err := addrport.ParseAddress(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Guests implements internal/inventory.GuestProvider.
func (s Snapshot) Guests(_ context.Context) ([]model.Guest, error) {
	return append([]model.Guest(nil), s.guests...), nil
}

// VNets implements internal/inventory.VNetProvider.
func (s Snapshot) VNets(_ context.Context) ([]model.VNet, error) {
	return append([]model.VNet(nil), s.vnets...), nil
}

// IPAM implements internal/inventory.IPAMProvider.
func (s Snapshot) IPAM(_ context.Context) (model.IPAMState, error) {
	return s.ipam, nil
}
