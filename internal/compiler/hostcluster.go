// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
	"github.com/proxmox/proxmox-firewall/internal/skeleton"
)

// emitHostCluster populates cluster-in/out then host-in/out, in that order
// (§4.H step 5: cluster rules are evaluated before host rules, both ahead of
// per-guest chains). Neither scope has a FORWARD chain of its own, so any
// FORWARD-direction rule in either rule tree is silently skipped.
func emitHostCluster(b *nftjson.Builder, dc *model.Resolver, inv model.Inventory) error {
	clusterChains := chainSet{In: "cluster-in", Out: "cluster-out"}
	if err := emitRuleTree(b, nftjson.FamilyInet, skeleton.InetTableName, clusterChains, model.ScopeDatacenter, "dc", dc, inv.Cluster.Rules); err != nil {
		return err
	}

	hostChains := chainSet{In: "host-in", Out: "host-out"}
	if err := emitRuleTree(b, nftjson.FamilyInet, skeleton.InetTableName, hostChains, model.ScopeDatacenter, "dc", dc, inv.Host.Rules); err != nil {
		return err
	}
	return nil
}
