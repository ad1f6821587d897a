// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package compiler implements the pure compile function (§4.H, "the heart"):
// it consumes one model.Inventory snapshot and produces the complete
// nftables JSON ruleset for both managed tables, deterministically and
// without touching the network or the filesystem itself. Everything it
// needs — parsed config, resolved inventory, IPAM state — is handed to it
// by the caller; everything it produces is handed back as a nftjson.Ruleset
// for internal/applier to apply.
package compiler

import (
	"sort"

	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
	"github.com/proxmox/proxmox-firewall/internal/skeleton"
)

// Options carries the compiler's own behavioral flags, independent of the
// Inventory content itself.
type Options struct {
	// Lenient, when set, downgrades a guest-scope rule-tree error to stub
	// chains ending in a bare drop for that one guest rather than failing the
	// whole compile (§7's "lenient mode": a single misconfigured guest must
	// not take down every other guest's connectivity). VNet, host, cluster
	// and dc-scope errors always fail the whole compile regardless of this
	// flag.
	Lenient bool
}

// Compile turns one Inventory snapshot into the full nftables JSON ruleset
// (§4.H). disableFlag short-circuits to the flush-and-delete sequence only
// (§4.H step 1, §8 invariant 6) — every other input is ignored in that case.
func Compile(inv model.Inventory, disableFlag bool, opts Options) (nftjson.Ruleset, error) {
	if disableFlag {
		return nftjson.FlushDeleteAll(skeleton.InetTableName, skeleton.BridgeTableName), nil
	}

	dcAliases, err := mergeAliasTables(inv.Cluster.Aliases, inv.Host.Aliases)
	if err != nil {
		return nftjson.Ruleset{}, err
	}

	dcSets := model.NewSetRegistry()
	for _, s := range append(append([]model.IPSet(nil), inv.Cluster.Sets...), inv.Host.Sets...) {
		if err := dcSets.Add(s); err != nil {
			return nftjson.Ruleset{}, err
		}
	}

	macros := model.DefaultMacroCatalogue()
	groups := inv.Groups
	if groups == nil {
		groups = map[string]model.SecurityGroup{}
	}

	dcResolver := model.NewResolver(dcAliases, dcSets, macros, groups)

	b := nftjson.NewBuilder()
	skeleton.PopulateInet(b, inv.Host.Options)
	skeleton.PopulateBridge(b, skeleton.CanonicalDHCPPorts())

	// dc-scope sets are duplicated into both tables since nftables sets are
	// table-scoped and guest-scope rules in the bridge table may reference
	// them (§9 "cross-scope references").
	for _, s := range dcSets.AllInScope(model.ScopeDatacenter) {
		rs, err := s.Resolve(dcResolver)
		if err != nil {
			return nftjson.Ruleset{}, err
		}
		emitResolvedSet(b, nftjson.FamilyInet, skeleton.InetTableName, "dc", rs)
		emitResolvedSet(b, nftjson.FamilyBridge, skeleton.BridgeTableName, "dc", rs)
	}

	if err := emitHostCluster(b, dcResolver, inv); err != nil {
		return nftjson.Ruleset{}, err
	}

	if err := emitGuestsLenient(b, dcAliases, dcSets, macros, groups, inv, opts); err != nil {
		return nftjson.Ruleset{}, err
	}

	if err := emitVNets(b, dcAliases, dcSets, macros, groups, inv); err != nil {
		return nftjson.Ruleset{}, err
	}

	return b.Build(), nil
}

// emitGuestsLenient wraps emitGuests so a single guest's resolution failure
// can be downgraded to drop-only stub chains instead of failing the whole
// compile, when opts.Lenient is set (§7).
func emitGuestsLenient(b *nftjson.Builder, dcAliases *model.AliasTable, dcSets *model.SetRegistry, macros model.MacroCatalogue, groups map[string]model.SecurityGroup, inv model.Inventory, opts Options) error {
	if !opts.Lenient {
		return emitGuests(b, dcAliases, dcSets, macros, groups, inv)
	}

	guests := append([]model.Guest(nil), inv.Guests...)
	sort.Slice(guests, func(i, j int) bool { return guests[i].VMID < guests[j].VMID })

	var ok []model.Guest
	for _, g := range guests {
		single := inv
		single.Guests = []model.Guest{g}
		probe := nftjson.NewBuilder()
		if err := emitGuests(probe, dcAliases, dcSets, macros, groups, single); err != nil {
			stubGuestChains(b, g)
			continue
		}
		ok = append(ok, g)
	}

	withOK := inv
	withOK.Guests = ok
	return emitGuests(b, dcAliases, dcSets, macros, groups, withOK)
}

// stubGuestChains gives a guest that failed resolution a minimal, safe
// fallback: every firewall-enabled NIC gets its three chains declared with
// an unconditional drop, so the guest loses connectivity rather than
// silently inheriting the base chain's accept policy (§7 lenient mode).
func stubGuestChains(b *nftjson.Builder, g model.Guest) {
	for _, nic := range g.NICs {
		if !nic.FirewallEnabled {
			continue
		}
		inChain := skeleton.GuestChainName(g.VMID, nic.Index, "in")
		outChain := skeleton.GuestChainName(g.VMID, nic.Index, "out")
		fwdChain := skeleton.GuestForwardChainName(g.VMID, nic.Index)
		for _, name := range []string{inChain, outChain, fwdChain} {
			b.AddChain(nftjson.Chain{Family: nftjson.FamilyBridge, Table: skeleton.BridgeTableName, Name: name})
			b.AddRule(nftjson.Rule{Family: nftjson.FamilyBridge, Table: skeleton.BridgeTableName, Chain: name,
				Comment: "stubbed: guest configuration failed to resolve", Expr: []nftjson.Expression{nftjson.Drop()}})
		}

		// without a dispatch rule into these stub chains, the NIC's traffic
		// would simply fall through vm-in/vm-out's own accept policy
		// instead of actually losing connectivity.
		names := []string{nic.IfaceName}
		if nic.Altname != "" {
			names = append(names, nic.Altname)
		}
		for _, name := range names {
			b.AddRule(nftjson.Rule{Family: nftjson.FamilyBridge, Table: skeleton.BridgeTableName, Chain: "vm-in",
				Expr: []nftjson.Expression{nftjson.Match("==", nftjson.Meta("iifname"), nftjson.Literal(name)), nftjson.Jump(inChain)}})
			b.AddRule(nftjson.Rule{Family: nftjson.FamilyBridge, Table: skeleton.BridgeTableName, Chain: "vm-out",
				Expr: []nftjson.Expression{nftjson.Match("==", nftjson.Meta("oifname"), nftjson.Literal(name)), nftjson.Jump(outChain)}})
		}
	}
}

// mergeAliasTables folds cluster, then host, aliases into one datacenter
// scope table (§3: cluster and host config share the same shape and are
// treated as two layers feeding the same dc scope). A name defined in both
// is a DuplicateName error, same as within a single table.
func mergeAliasTables(tables ...*model.AliasTable) (*model.AliasTable, error) {
	merged := model.NewAliasTable(model.ScopeDatacenter)
	for _, t := range tables {
		if t == nil {
			continue
		}
		names := append([]string(nil), t.Names()...)
		sort.Strings(names)
		for _, name := range names {
			a, _ := t.Lookup(name)
			if err := merged.Add(name, a.Address); err != nil {
				return nil, err
			}
		}
	}
	return merged, nil
}
