// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package skeleton

import (
	"testing"

	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
)

func countCommands(rs nftjson.Ruleset, pred func(nftjson.Command) bool) int {
	n := 0
	for _, c := range rs.Commands {
		if pred(c) {
			n++
		}
	}
	return n
}

func TestPopulateInetAddsTableAndAllChains(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateInet(b, model.HostOptions{})
	rs := b.Build()

	if n := countCommands(rs, func(c nftjson.Command) bool { return c.Add != nil && c.Add.Table != nil }); n != 1 {
		t.Fatalf("expected exactly 1 table add, got %d", n)
	}

	chainAdds := countCommands(rs, func(c nftjson.Command) bool { return c.Add != nil && c.Add.Chain != nil })
	if chainAdds != len(InetChains) {
		t.Fatalf("expected %d chain adds, got %d", len(InetChains), chainAdds)
	}
}

func TestPopulateInetHookChainsCarryHookAndPolicy(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateInet(b, model.HostOptions{})
	rs := b.Build()

	var foundInput bool
	for _, c := range rs.Commands {
		if c.Add == nil || c.Add.Chain == nil {
			continue
		}
		if c.Add.Chain.Name == "input" {
			foundInput = true
			if c.Add.Chain.Hook == nil || c.Add.Chain.Hook.Hook != "input" {
				t.Fatalf("input chain missing input hook: %+v", c.Add.Chain)
			}
			if c.Add.Chain.Policy != "accept" {
				t.Fatalf("input chain expected accept policy, got %q", c.Add.Chain.Policy)
			}
		}
	}
	if !foundInput {
		t.Fatal("input chain not found")
	}
}

func TestPopulateInetVitalICMPv6Preamble(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateInet(b, model.HostOptions{})
	rs := b.Build()

	got := 0
	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "allow-ndp-in" {
			got++
		}
	}
	if got != len(VitalICMPv6Types()) {
		t.Fatalf("expected %d vital ND rules in allow-ndp-in, got %d", len(VitalICMPv6Types()), got)
	}
}

func TestPopulateInetInputOutputJumpToNDPreamble(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateInet(b, model.HostOptions{})
	rs := b.Build()

	jumpsTo := func(chain, target string) bool {
		for _, c := range rs.Commands {
			if c.Add == nil || c.Add.Rule == nil || c.Add.Rule.Chain != chain {
				continue
			}
			for _, e := range c.Add.Rule.Expr {
				if e.Verdict != nil && e.Verdict.Kind == "jump" && e.Verdict.Target == target {
					return true
				}
			}
		}
		return false
	}

	if !jumpsTo("input", "allow-ndp-in") {
		t.Fatal("expected input to jump to allow-ndp-in")
	}
	if !jumpsTo("output", "allow-ndp-out") {
		t.Fatal("expected output to jump to allow-ndp-out")
	}
}

func TestPopulateInetOptionsGateProtectionRules(t *testing.T) {
	withAll := nftjson.NewBuilder()
	PopulateInet(withAll, model.HostOptions{ProtectionSynflood: true, NoSmurfs: true, TCPFlags: true})
	rsAll := withAll.Build()

	withNone := nftjson.NewBuilder()
	PopulateInet(withNone, model.HostOptions{})
	rsNone := withNone.Build()

	ruleCount := func(rs nftjson.Ruleset, chainName string) int {
		n := 0
		for _, c := range rs.Commands {
			if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == chainName {
				n++
			}
		}
		return n
	}

	if ruleCount(rsAll, "block-synflood") == 0 {
		t.Fatal("expected block-synflood rule when ProtectionSynflood is set")
	}
	if ruleCount(rsNone, "block-synflood") != 0 {
		t.Fatal("did not expect block-synflood rule when ProtectionSynflood is unset")
	}
	if ruleCount(rsAll, "block-smurfs") == 0 {
		t.Fatal("expected block-smurfs rule when NoSmurfs is set")
	}
	if ruleCount(rsNone, "block-smurfs") != 0 {
		t.Fatal("did not expect block-smurfs rule when NoSmurfs is unset")
	}
	if ruleCount(rsAll, "block-invalid-tcp") == 0 {
		t.Fatal("expected block-invalid-tcp rule when TCPFlags is set")
	}
	if ruleCount(rsNone, "block-invalid-tcp") != 0 {
		t.Fatal("did not expect block-invalid-tcp rule when TCPFlags is unset")
	}
}

func TestPopulateInetConntrackInvalidDefaultsToBlocked(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateInet(b, model.HostOptions{})
	rs := b.Build()

	found := false
	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "block-conntrack-invalid" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected block-conntrack-invalid rule by default (ConntrackAllowInvalid=false)")
	}

	b2 := nftjson.NewBuilder()
	PopulateInet(b2, model.HostOptions{ConntrackAllowInvalid: true})
	rs2 := b2.Build()
	for _, c := range rs2.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "block-conntrack-invalid" {
			t.Fatal("did not expect block-conntrack-invalid rule when ConntrackAllowInvalid is set")
		}
	}
}

func TestPopulateInetDoRejectUsesReject(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateInet(b, model.HostOptions{})
	rs := b.Build()

	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "do-reject" {
			expr := c.Add.Rule.Expr[len(c.Add.Rule.Expr)-1]
			if expr.Verdict == nil || expr.Verdict.Kind != "reject" {
				t.Fatalf("expected reject verdict in inet do-reject, got %+v", expr)
			}
			return
		}
	}
	t.Fatal("do-reject rule not found")
}

func TestPopulateBridgeDoRejectUsesDrop(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateBridge(b, CanonicalDHCPPorts())
	rs := b.Build()

	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "do-reject" {
			expr := c.Add.Rule.Expr[len(c.Add.Rule.Expr)-1]
			if expr.Verdict == nil || expr.Verdict.Kind != "drop" {
				t.Fatalf("expected drop verdict in bridge do-reject, got %+v", expr)
			}
			return
		}
	}
	t.Fatal("do-reject rule not found")
}

func TestPopulateBridgeDHCPPortsComeFromCanonicalTable(t *testing.T) {
	ports := CanonicalDHCPPorts()
	if ports.V4Client != 68 || ports.V4Server != 67 {
		t.Fatalf("unexpected DHCPv4 ports: %+v", ports)
	}
	if ports.V6Client != 546 || ports.V6Server != 547 {
		t.Fatalf("unexpected DHCPv6 ports: %+v", ports)
	}

	b := nftjson.NewBuilder()
	PopulateBridge(b, ports)
	rs := b.Build()

	found := false
	for _, c := range rs.Commands {
		if c.Add == nil || c.Add.Rule == nil || c.Add.Rule.Chain != "allow-dhcp-in" {
			continue
		}
		found = true
	}
	if !found {
		t.Fatal("expected allow-dhcp-in rules")
	}
}

func TestPopulateBridgeARPAllowedInVMIn(t *testing.T) {
	b := nftjson.NewBuilder()
	PopulateBridge(b, CanonicalDHCPPorts())
	rs := b.Build()

	found := false
	for _, c := range rs.Commands {
		if c.Add != nil && c.Add.Rule != nil && c.Add.Rule.Chain == "vm-in" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an ARP-allow rule in vm-in")
	}
}

func TestVitalICMPv6TypesMatchNDP(t *testing.T) {
	types := VitalICMPv6Types()
	if len(types) != 5 {
		t.Fatalf("expected 5 vital ND types, got %d", len(types))
	}
	seen := make(map[string]bool)
	for _, ty := range types {
		if ty.NFTName == "" {
			t.Fatal("empty NFTName")
		}
		seen[ty.NFTName] = true
	}
	for _, want := range []string{"nd-router-solicit", "nd-neighbor-solicit", "nd-router-advert", "nd-neighbor-advert", "nd-redirect"} {
		if !seen[want] {
			t.Fatalf("missing vital ND type %q", want)
		}
	}
}

func TestGuestChainNameDeterministic(t *testing.T) {
	if got := GuestChainName(100, 0, "in"); got != "guest-100-0-in" {
		t.Fatalf("unexpected guest chain name: %q", got)
	}
	if got := GuestForwardChainName(100, 0); got != "guest-100-0-fwd" {
		t.Fatalf("unexpected guest forward chain name: %q", got)
	}
	if got := VNetForwardChainName("vnet0"); got != "vnet-vnet0-fwd" {
		t.Fatalf("unexpected VNet forward chain name: %q", got)
	}
}
