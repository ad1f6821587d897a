// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/inventory"
	"github.com/proxmox/proxmox-firewall/internal/legacyfmt"
	"github.com/proxmox/proxmox-firewall/internal/model"
)

// LoadInventory assembles one model.Inventory snapshot (§6.1) from two
// sources that never overlap: dir, an on-disk tree of legacy key/value
// overlay files (host.fw, cluster.fw, guests/<vmid>.fw, vnets/<name>.fw)
// this package reads itself via internal/legacyfmt, and providers, the
// external-collaborator contracts (internal/inventory) supplying each
// guest/VNet's structural facts and the cluster's IPAM state. Every call
// rereads both from scratch — entities are rebuilt fresh each reconcile
// cycle and never cached between ticks (spec.md §3 "Lifecycles").
func LoadInventory(ctx context.Context, dir string, providers inventory.Providers) (model.Inventory, error) {
	hostFile, err := parseFileIfExists(filepath.Join(dir, "host.fw"))
	if err != nil {
		return model.Inventory{}, err
	}
	clusterFile, err := parseFileIfExists(filepath.Join(dir, "cluster.fw"))
	if err != nil {
		return model.Inventory{}, err
	}

	macros := model.DefaultMacroCatalogue()

	var hostCfg model.HostConfig
	if hostFile != nil {
		hostCfg, err = legacyfmt.BuildHostConfig(hostFile)
		if err != nil {
			return model.Inventory{}, pferrors.Wrap(err, pferrors.KindValidation, "host.fw")
		}
	} else {
		hostCfg = model.HostConfig{Aliases: model.NewAliasTable(model.ScopeDatacenter), Rules: model.RuleTree{Scope: model.ScopeDatacenter}}
	}

	var clusterCfg model.ClusterConfig
	if clusterFile != nil {
		clusterCfg, err = legacyfmt.BuildClusterConfig(clusterFile)
		if err != nil {
			return model.Inventory{}, pferrors.Wrap(err, pferrors.KindValidation, "cluster.fw")
		}
	} else {
		clusterCfg = model.ClusterConfig{Aliases: model.NewAliasTable(model.ScopeDatacenter), Rules: model.RuleTree{Scope: model.ScopeDatacenter}}
	}

	groups := map[string]model.SecurityGroup{}
	for _, f := range []*legacyfmt.File{clusterFile, hostFile} {
		if f == nil {
			continue
		}
		g, err := legacyfmt.BuildGroups(f, macros)
		if err != nil {
			return model.Inventory{}, err
		}
		for name, sg := range g {
			groups[name] = sg
		}
	}

	baseGuests, err := providers.Guests.Guests(ctx)
	if err != nil {
		return model.Inventory{}, pferrors.Wrap(err, pferrors.KindUnavailable, "guest provider")
	}
	guests := make([]model.Guest, 0, len(baseGuests))
	for _, g := range baseGuests {
		overlayPath := filepath.Join(dir, "guests", strconv.Itoa(g.VMID)+".fw")
		f, err := parseFileIfExists(overlayPath)
		if err != nil {
			return model.Inventory{}, err
		}
		if f != nil {
			overlay, err := legacyfmt.BuildGuestOverlay(f)
			if err != nil {
				return model.Inventory{}, pferrors.Wrap(err, pferrors.KindValidation, overlayPath)
			}
			g.Options = overlay.Options
			g.Rules = overlay.Rules
			g.Sets = overlay.Sets
		} else {
			g.Rules = model.RuleTree{Scope: model.ScopeGuest}
		}
		guests = append(guests, g)
	}

	baseVNets, err := providers.VNets.VNets(ctx)
	if err != nil {
		return model.Inventory{}, pferrors.Wrap(err, pferrors.KindUnavailable, "vnet provider")
	}
	vnets := make([]model.VNet, 0, len(baseVNets))
	for _, v := range baseVNets {
		overlayPath := filepath.Join(dir, "vnets", v.Name+".fw")
		f, err := parseFileIfExists(overlayPath)
		if err != nil {
			return model.Inventory{}, err
		}
		if f != nil {
			overlay, err := legacyfmt.BuildVNetOverlay(f)
			if err != nil {
				return model.Inventory{}, pferrors.Wrap(err, pferrors.KindValidation, overlayPath)
			}
			v.Rules = overlay.Rules
			v.Sets = overlay.Sets
		} else {
			v.Rules = model.RuleTree{Scope: model.ScopeGuest}
		}
		vnets = append(vnets, v)
	}

	ipam, err := providers.IPAM.IPAM(ctx)
	if err != nil {
		return model.Inventory{}, pferrors.Wrap(err, pferrors.KindUnavailable, "ipam provider")
	}

	return model.Inventory{
		Host:    hostCfg,
		Cluster: clusterCfg,
		Guests:  guests,
		VNets:   vnets,
		IPAM:    ipam,
		Groups:  groups,
	}, nil
}

// parseFileIfExists reads and section-splits the legacy config file at
// path, returning (nil, nil) if it doesn't exist — every overlay file is
// optional (§6.4).
func parseFileIfExists(path string) (*legacyfmt.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pferrors.Wrap(err, pferrors.KindInternal, fmt.Sprintf("read %q", path))
	}
	f, err := legacyfmt.Parse(strings.NewReader(string(data)), path)
	if err != nil {
		return nil, pferrors.Wrap(err, pferrors.KindValidation, path)
	}
	return f, nil
}

// DisableFlagSet reports whether the disable sentinel file at path exists
// (§3 invariant 6, §4.H step 1).
func DisableFlagSet(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, pferrors.Wrap(err, pferrors.KindInternal, fmt.Sprintf("stat disable sentinel %q", path))
}
