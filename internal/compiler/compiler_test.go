// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
	"github.com/proxmox/proxmox-firewall/internal/valuegrammar"
)

func mustAddr(t *testing.T, s string) addrport.Address {
	t.Helper()
	a, err := addrport.ParseAddress(s)
	require.NoError(t, err)
	return a
}

func countAdds(rs nftjson.Ruleset, pred func(nftjson.AddObject) bool) int {
	n := 0
	for _, c := range rs.Commands {
		if c.Add != nil && pred(*c.Add) {
			n++
		}
	}
	return n
}

func TestCompile_DisableFlagOnlyFlushesAndDeletes(t *testing.T) {
	rs, err := Compile(model.Inventory{}, true, Options{})
	require.NoError(t, err)

	require.Len(t, rs.Commands, 4)
	for _, c := range rs.Commands {
		assert.Nil(t, c.Add)
	}
}

func TestCompile_EmptyInventoryStillPopulatesSkeleton(t *testing.T) {
	rs, err := Compile(model.Inventory{}, false, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool { return a.Table != nil && a.Table.Family == nftjson.FamilyInet }))
	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool { return a.Table != nil && a.Table.Family == nftjson.FamilyBridge }))
}

func TestCompile_GuestWithNoFirewallEnabledNICContributesNoChains(t *testing.T) {
	inv := model.Inventory{
		Guests: []model.Guest{
			{VMID: 100, NICs: []model.NIC{{Name: "net0", Index: 0, FirewallEnabled: false}}},
		},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Chain != nil {
			assert.NotContains(t, c.Add.Chain.Name, "guest-100-")
		}
	}
}

func TestCompile_GuestAcceptRuleProducesPerNICChainsAndVMapEntries(t *testing.T) {
	inv := model.Inventory{
		Guests: []model.Guest{
			{
				VMID: 100,
				NICs: []model.NIC{{Name: "net0", Index: 0, IfaceName: "tap100i0", FirewallEnabled: true}},
				Rules: model.RuleTree{
					Scope: model.ScopeGuest,
					Rules: []model.Rule{
						{Direction: valuegrammar.DirectionIn, Action: model.Action{Kind: model.ActionPolicy, Policy: valuegrammar.PolicyAccept}, Enabled: true, Proto: "tcp", DPort: "22"},
					},
				},
			},
		},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool { return a.Chain != nil && a.Chain.Name == "guest-100-0-in" }))
	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool { return a.Chain != nil && a.Chain.Name == "guest-100-0-out" }))
	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool { return a.Chain != nil && a.Chain.Name == "guest-100-0-fwd" }))

	var sawVMapElement bool
	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Element != nil && c.Add.Element.Name == "vm-map-in" {
			sawVMapElement = true
			require.Len(t, c.Add.Element.Elem, 1)
			assert.Equal(t, "tap100i0", c.Add.Element.Elem[0].Value)
			require.NotNil(t, c.Add.Element.Elem[0].Verdict)
			assert.Equal(t, "guest-100-0-in", c.Add.Element.Elem[0].Verdict.Target)
		}
	}
	assert.True(t, sawVMapElement)
}

func TestCompile_AltnameGetsParityInBothVMMaps(t *testing.T) {
	inv := model.Inventory{
		Guests: []model.Guest{
			{
				VMID: 200,
				NICs: []model.NIC{{Name: "net0", Index: 0, IfaceName: "tap200i0", Altname: "veth200i0", FirewallEnabled: true}},
			},
		},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	var names []string
	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Element != nil && c.Add.Element.Name == "vm-map-in" {
			for _, e := range c.Add.Element.Elem {
				names = append(names, e.Value.(string))
			}
		}
	}
	assert.Contains(t, names, "tap200i0")
	assert.Contains(t, names, "veth200i0")
}

func TestCompile_DuplicateDatacenterAliasNameFails(t *testing.T) {
	cluster := model.NewAliasTable(model.ScopeDatacenter)
	require.NoError(t, cluster.Add("mgmt", mustAddr(t, "10.0.0.1")))
	host := model.NewAliasTable(model.ScopeDatacenter)
	require.NoError(t, host.Add("mgmt", mustAddr(t, "10.0.0.2")))

	inv := model.Inventory{
		Cluster: model.ClusterConfig{Aliases: cluster},
		Host:    model.HostConfig{Aliases: host},
	}
	_, err := Compile(inv, false, Options{})
	assert.Error(t, err)
}

func TestCompile_DatacenterSetIsDuplicatedIntoBothTables(t *testing.T) {
	set := model.IPSet{
		Scope: model.ScopeDatacenter, Name: "mgmt",
		Entries: []model.IPSetEntry{{Kind: model.IPSetEntryAddress, Address: mustAddr(t, "10.0.0.0/24")}},
	}
	inv := model.Inventory{Host: model.HostConfig{Sets: []model.IPSet{set}}}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool {
		return a.Set != nil && a.Set.Family == nftjson.FamilyInet && a.Set.Name == "v4-dc/mgmt"
	}))
	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool {
		return a.Set != nil && a.Set.Family == nftjson.FamilyBridge && a.Set.Name == "v4-dc/mgmt"
	}))
}

func TestCompile_VNetForwardChainGetsConntrackInvalidGate(t *testing.T) {
	inv := model.Inventory{
		VNets: []model.VNet{{Name: "vnet0", Bridge: "vmbr1", FirewallEnabled: true}},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	found := false
	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "vnet-vnet0-fwd" {
			found = true
			assert.Equal(t, "drop", c.Add.Rule.Expr[len(c.Add.Rule.Expr)-1].Verdict.Kind)
			break
		}
	}
	assert.True(t, found)
}

func TestCompile_VNetForwardChainSkipsConntrackGateWhenInvalidAllowed(t *testing.T) {
	inv := model.Inventory{
		Host:  model.HostConfig{Options: model.HostOptions{ConntrackAllowInvalid: true}},
		VNets: []model.VNet{{Name: "vnet0", Bridge: "vmbr1", FirewallEnabled: true}},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "vnet-vnet0-fwd" {
			for _, e := range c.Add.Rule.Expr {
				if e.Verdict != nil {
					assert.NotEqual(t, "drop", e.Verdict.Kind, "conntrack-invalid gate should be absent when ConntrackAllowInvalid is set")
				}
			}
		}
	}
}

func TestCompile_GuestChainsJumpToNDPreambleRegardlessOfNDPOption(t *testing.T) {
	inv := model.Inventory{
		Guests: []model.Guest{
			{VMID: 100, NICs: []model.NIC{{Name: "net0", Index: 0, IfaceName: "tap100i0", FirewallEnabled: true}}, Options: model.GuestOptions{NDP: false}},
		},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	var jumpsIn, jumpsOut bool
	for _, c := range rs.Commands {
		if c.Add == nil || c.Add.Rule == nil {
			continue
		}
		for _, e := range c.Add.Rule.Expr {
			if e.Verdict == nil || e.Verdict.Kind != "jump" {
				continue
			}
			if c.Add.Rule.Chain == "guest-100-0-in" && e.Verdict.Target == "allow-ndp-in" {
				jumpsIn = true
			}
			if c.Add.Rule.Chain == "guest-100-0-out" && e.Verdict.Target == "allow-ndp-out" {
				jumpsOut = true
			}
		}
	}
	assert.True(t, jumpsIn, "expected guest-100-0-in to jump to allow-ndp-in even with ndp option unset")
	assert.True(t, jumpsOut, "expected guest-100-0-out to jump to allow-ndp-out even with ndp option unset")
}

func TestCompile_ICMPTypeAnyOmitsMatchStatement(t *testing.T) {
	inv := model.Inventory{
		Host: model.HostConfig{Rules: model.RuleTree{Scope: model.ScopeDatacenter, Rules: []model.Rule{
			{
				Direction: valuegrammar.DirectionIn, Enabled: true,
				Action: model.Action{Kind: model.ActionPolicy, Policy: valuegrammar.PolicyAccept},
				Proto:  "icmp", ICMPType: "any",
			},
		}}},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	found := false
	for _, c := range rs.Commands {
		if c.Add == nil || c.Add.Rule == nil || c.Add.Rule.Chain != "host-in" {
			continue
		}
		found = true
		for _, e := range c.Add.Rule.Expr {
			if e.Match == nil {
				continue
			}
			j, err := json.Marshal(e.Match)
			require.NoError(t, err)
			assert.NotContains(t, string(j), `"field":"type"`, "ICMPType=any must not emit an icmp-type match statement")
		}
	}
	assert.True(t, found, "expected a host-in rule to be emitted")
}

func TestCompile_NegatedSetMemberCompilesToNoMatchExclusion(t *testing.T) {
	set := model.IPSet{
		Scope: model.ScopeDatacenter, Name: "trusted",
		Entries: []model.IPSetEntry{
			{Kind: model.IPSetEntryAddress, Address: mustAddr(t, "10.0.0.0/24")},
			{Kind: model.IPSetEntryAddress, Address: mustAddr(t, "10.0.0.5"), Negated: true},
		},
	}
	inv := model.Inventory{
		Host: model.HostConfig{
			Sets: []model.IPSet{set},
			Rules: model.RuleTree{Scope: model.ScopeDatacenter, Rules: []model.Rule{
				{
					Direction: valuegrammar.DirectionIn, Enabled: true,
					Action: model.Action{Kind: model.ActionPolicy, Policy: valuegrammar.PolicyAccept},
					Source: model.Endpoint{Kind: model.EndpointSetRef, Ref: "trusted"},
				},
			}},
		},
	}
	rs, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	sawExclusion := false
	for _, c := range rs.Commands {
		if c.Add == nil || c.Add.Rule == nil || c.Add.Rule.Chain != "host-in" {
			continue
		}
		for _, e := range c.Add.Rule.Expr {
			if e.Match != nil && e.Match.Op == "!=" {
				sawExclusion = true
			}
		}
	}
	assert.True(t, sawExclusion, "expected a != exclusion match against the nomatch set")
}

func TestCompile_IsDeterministicAcrossRepeatedCompiles(t *testing.T) {
	inv := model.Inventory{
		Guests: []model.Guest{
			{VMID: 101, NICs: []model.NIC{{Name: "net0", Index: 0, IfaceName: "tap101i0", FirewallEnabled: true}}},
			{VMID: 100, NICs: []model.NIC{{Name: "net0", Index: 0, IfaceName: "tap100i0", FirewallEnabled: true}}},
		},
	}

	rs1, err := Compile(inv, false, Options{})
	require.NoError(t, err)
	rs2, err := Compile(inv, false, Options{})
	require.NoError(t, err)

	j1, err := json.Marshal(rs1)
	require.NoError(t, err)
	j2, err := json.Marshal(rs2)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
}

func TestCompile_LenientModeStubsOnlyTheFailingGuest(t *testing.T) {
	goodGuest := model.Guest{VMID: 100, NICs: []model.NIC{{Name: "net0", Index: 0, IfaceName: "tap100i0", FirewallEnabled: true}}}
	badGuest := model.Guest{
		VMID: 101,
		NICs: []model.NIC{{Name: "net0", Index: 0, IfaceName: "tap101i0", FirewallEnabled: true}},
		Rules: model.RuleTree{Rules: []model.Rule{
			{Direction: valuegrammar.DirectionIn, Enabled: true, Action: model.Action{Kind: model.ActionGroup, Name: "does-not-exist"}},
		}},
	}
	inv := model.Inventory{Guests: []model.Guest{goodGuest, badGuest}}

	_, err := Compile(inv, false, Options{Lenient: false})
	require.Error(t, err)

	rs, err := Compile(inv, false, Options{Lenient: true})
	require.NoError(t, err)

	var badChainRejects bool
	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "guest-101-0-in" {
			badChainRejects = badChainRejects || c.Add.Rule.Expr[len(c.Add.Rule.Expr)-1].Verdict.Kind == "drop"
		}
	}
	assert.True(t, badChainRejects)

	assert.Equal(t, 1, countAdds(rs, func(a nftjson.AddObject) bool { return a.Chain != nil && a.Chain.Name == "guest-100-0-in" }))
}
