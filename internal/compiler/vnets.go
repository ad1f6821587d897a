// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"sort"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
	"github.com/proxmox/proxmox-firewall/internal/skeleton"
)

// resolvedSetFromAddresses builds a ResolvedIPSet directly from a list of
// already-concrete addresses (no alias resolution needed), splitting by
// family the same way IPSet.Resolve does — used for the IPAM-sourced
// "<vnet>-allocated" set, which has no [IPSET] section of its own (§4.F).
func resolvedSetFromAddresses(name string, addrs []addrport.Address) model.ResolvedIPSet {
	out := model.ResolvedIPSet{Scope: model.ScopeGuest, Name: name}
	for _, a := range addrs {
		switch a.Family {
		case addrport.FamilyV4:
			out.V4 = append(out.V4, a)
		case addrport.FamilyV6:
			out.V6 = append(out.V6, a)
		case addrport.FamilyMAC:
			out.MAC = append(out.MAC, a)
		}
	}
	return out
}

// emitVNets populates one FORWARD chain per SDN VNet (§4.H step 7, §4.F): a
// conntrack-invalid drop ahead of the VNet's own FORWARD rules, with its
// IPAM-allocated addresses and its own [IPSET] sections resolved into sets
// tagged under that VNet's own scope tag so they never collide with a guest
// or the datacenter's same-named sets.
func emitVNets(b *nftjson.Builder, dcAliases *model.AliasTable, dcSets *model.SetRegistry, macros model.MacroCatalogue, groups map[string]model.SecurityGroup, inv model.Inventory) error {
	vnets := append([]model.VNet(nil), inv.VNets...)
	sort.Slice(vnets, func(i, j int) bool { return vnets[i].Name < vnets[j].Name })

	for _, vnet := range vnets {
		if !vnet.FirewallEnabled {
			continue
		}
		tag := vnetScopeTag(vnet.Name)
		chainName := skeleton.VNetForwardChainName(vnet.Name)

		b.AddChain(nftjson.Chain{Family: nftjson.FamilyBridge, Table: skeleton.BridgeTableName, Name: chainName})

		// §4.H step 7: "if nf_conntrack_allow_invalid=0, prepend a
		// conntrack-invalid drop" — gated the same way
		// addConntrackInvalidGate gates the host table's equivalent rule.
		if !inv.Host.Options.ConntrackAllowInvalid {
			b.AddRule(nftjson.Rule{
				Family: nftjson.FamilyBridge, Table: skeleton.BridgeTableName, Chain: chainName,
				Comment: "conntrack-invalid gate ahead of VNet forward rules",
				Expr: []nftjson.Expression{
					nftjson.Match("==", nftjson.CT("state"), nftjson.Literal("invalid")),
					nftjson.Drop(),
				},
			})
		}

		registry := model.NewSetRegistry()
		for _, s := range dcSets.AllInScope(model.ScopeDatacenter) {
			if err := registry.Add(s); err != nil {
				return err
			}
		}
		for _, s := range vnet.Sets {
			if err := registry.Add(s); err != nil {
				return err
			}
		}
		resolver := model.NewResolver(dcAliases, registry, macros, groups)

		allocated := resolvedSetFromAddresses(vnet.AllocatedSetName(), inv.IPAM.AllocatedAddresses(vnet.Name))
		emitResolvedSet(b, nftjson.FamilyBridge, skeleton.BridgeTableName, tag, allocated)

		if err := resolveAndEmitSets(b, nftjson.FamilyBridge, skeleton.BridgeTableName, tag, resolver, vnet.Sets); err != nil {
			return err
		}

		chains := chainSet{Forward: chainName}
		if err := emitRuleTree(b, nftjson.FamilyBridge, skeleton.BridgeTableName, chains, model.ScopeGuest, tag, resolver, vnet.Rules); err != nil {
			return err
		}
	}
	return nil
}
