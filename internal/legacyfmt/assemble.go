// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import "github.com/proxmox/proxmox-firewall/internal/model"

// BuildHostConfig assembles a model.HostConfig from a parsed host.fw-shaped
// File: one optional `[OPTIONS]`, one optional `[ALIASES]`, any number of
// `[IPSET name]` blocks, and one optional `[RULES]` block.
func BuildHostConfig(f *File) (model.HostConfig, error) {
	var cfg model.HostConfig

	if sec, ok := f.FirstOptions(); ok {
		opts, err := BuildHostOptions(sec)
		if err != nil {
			return model.HostConfig{}, err
		}
		cfg.Options = opts
	}

	if sec, ok := f.FirstAliases(); ok {
		aliases, err := BuildAliasTable(sec, model.ScopeDatacenter)
		if err != nil {
			return model.HostConfig{}, err
		}
		cfg.Aliases = aliases
	} else {
		cfg.Aliases = model.NewAliasTable(model.ScopeDatacenter)
	}

	sets, err := BuildIPSets(f, model.ScopeDatacenter)
	if err != nil {
		return model.HostConfig{}, err
	}
	cfg.Sets = sets

	cfg.Rules = model.RuleTree{Scope: model.ScopeDatacenter}
	if sec, ok := f.FirstRules(); ok {
		rules, err := BuildRules(sec, model.DefaultMacroCatalogue())
		if err != nil {
			return model.HostConfig{}, err
		}
		cfg.Rules.Rules = rules
	}

	return cfg, nil
}

// BuildClusterConfig assembles a model.ClusterConfig the same way
// BuildHostConfig does — cluster.fw shares host.fw's section shape (§3).
func BuildClusterConfig(f *File) (model.ClusterConfig, error) {
	host, err := BuildHostConfig(f)
	if err != nil {
		return model.ClusterConfig{}, err
	}
	return model.ClusterConfig{
		Options: host.Options,
		Rules:   host.Rules,
		Aliases: host.Aliases,
		Sets:    host.Sets,
	}, nil
}

// GuestOverlay is the subset of a Guest's fields a `<vmid>.fw` file can
// supply on its own; vmid, kind, and NICs come from Proxmox's own guest
// configuration, which is out of this package's scope (§6.1).
type GuestOverlay struct {
	Options model.GuestOptions
	Rules   model.RuleTree
	Sets    []model.IPSet
}

// BuildGuestOverlay assembles one guest's own `[OPTIONS]`/`[IPSET name]`/
// `[RULES]` sections.
func BuildGuestOverlay(f *File) (GuestOverlay, error) {
	var overlay GuestOverlay

	if sec, ok := f.FirstOptions(); ok {
		opts, err := BuildGuestOptions(sec)
		if err != nil {
			return GuestOverlay{}, err
		}
		overlay.Options = opts
	}

	sets, err := BuildIPSets(f, model.ScopeGuest)
	if err != nil {
		return GuestOverlay{}, err
	}
	overlay.Sets = sets

	overlay.Rules = model.RuleTree{Scope: model.ScopeGuest}
	if sec, ok := f.FirstRules(); ok {
		rules, err := BuildRules(sec, model.DefaultMacroCatalogue())
		if err != nil {
			return GuestOverlay{}, err
		}
		overlay.Rules.Rules = rules
	}

	return overlay, nil
}

// VNetOverlay is the subset of a VNet's fields an SDN VNet's own rule file
// can supply; name, bridge, and zone come from the SDN config reader (§6.1).
type VNetOverlay struct {
	Rules model.RuleTree
	Sets  []model.IPSet
}

// BuildVNetOverlay assembles one VNet's own `[IPSET name]`/`[RULES]`
// sections. VNet rule files carry no `[OPTIONS]` section (§3: a VNet's only
// option is firewall_enabled, which comes from the SDN config itself, not
// from this file).
func BuildVNetOverlay(f *File) (VNetOverlay, error) {
	var overlay VNetOverlay

	sets, err := BuildIPSets(f, model.ScopeGuest)
	if err != nil {
		return VNetOverlay{}, err
	}
	overlay.Sets = sets

	overlay.Rules = model.RuleTree{Scope: model.ScopeGuest}
	if sec, ok := f.FirstRules(); ok {
		rules, err := BuildRules(sec, model.DefaultMacroCatalogue())
		if err != nil {
			return VNetOverlay{}, err
		}
		overlay.Rules.Rules = rules
	}

	return overlay, nil
}
