// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package skeleton

import (
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
)

// rule is a tiny helper to cut down on repetition when appending a chain's
// fixed rule bodies below; it mirrors the teacher's own terse
// sb.AddRule(chain, expr, comment) call shape.
func rule(family nftjson.Family, table, chain string, comment string, expr ...nftjson.Expression) nftjson.Rule {
	return nftjson.Rule{Family: family, Table: table, Chain: chain, Expr: expr, Comment: comment}
}

func chain(family nftjson.Family, table, name string) nftjson.Chain {
	return nftjson.Chain{Family: family, Table: table, Name: name}
}

func hookChain(family nftjson.Family, table, name, hook string, prio int, policy string) nftjson.Chain {
	return nftjson.Chain{
		Family: family, Table: table, Name: name, Type: "filter",
		Hook: &nftjson.Hook{Hook: hook, Priority: prio}, Policy: policy,
	}
}

// PopulateInet adds the table, every chain in InetChains, and the fixed
// baseline rule bodies to b, wiring in hostOpts per §4.H step 3.
func PopulateInet(b *nftjson.Builder, hostOpts model.HostOptions) {
	b.AddTable(nftjson.Table{Family: nftjson.FamilyInet, Name: InetTableName})

	for _, name := range InetChains {
		switch name {
		case "input":
			b.AddChain(hookChain(nftjson.FamilyInet, InetTableName, name, "input", 0, "accept"))
		case "output":
			b.AddChain(hookChain(nftjson.FamilyInet, InetTableName, name, "output", 0, "accept"))
		default:
			b.AddChain(chain(nftjson.FamilyInet, InetTableName, name))
		}
	}

	AddVitalICMPv6Preamble(b, nftjson.FamilyInet, InetTableName, "allow-ndp-in")
	AddVitalICMPv6Preamble(b, nftjson.FamilyInet, InetTableName, "allow-ndp-out")

	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "default-in",
		"unconditionally accept ICMPv4 destination-unreachable/time-exceeded",
		nftjson.Match("==", nftjson.Payload("icmp", "type"), nftjson.Literal([]any{"destination-unreachable", "time-exceeded"})),
		nftjson.Accept(),
	))

	addConntrackInvalidGate(b, hostOpts)
	addSynfloodProtection(b, hostOpts)
	addSmurfProtection(b, hostOpts)
	addInvalidTCPProtection(b, hostOpts)

	// do-reject on the host table can generate a real ICMP/ICMPv6
	// unreachable, since the inet table has layer-3 context.
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "do-reject", "",
		nftjson.Reject(""),
	))

	// ct-in and option-in dispatch into the option-gated protection chains
	// populated above; each target chain is a no-op (empty) when its option
	// is unset, so the jump is unconditional and cheap either way.
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "ct-in", "", nftjson.Jump("block-conntrack-invalid")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "option-in", "", nftjson.Jump("block-synflood")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "option-in", "", nftjson.Jump("block-smurfs")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "option-in", "", nftjson.Jump("block-invalid-tcp")))

	// input/output route through the fixed chain sequence (§4.H step 2-3):
	// conntrack bookkeeping, the unconditional RFC 4890 ND preamble, then
	// option-driven protections, then the cluster/host rule chains
	// internal/compiler populates, ending in the unconditional ICMPv4
	// accepts.
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "input", "", nftjson.Jump("ct-in")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "input", "", nftjson.Jump("allow-ndp-in")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "input", "", nftjson.Jump("option-in")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "input", "", nftjson.Jump("cluster-in")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "input", "", nftjson.Jump("host-in")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "input", "", nftjson.Jump("default-in")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "output", "", nftjson.Jump("allow-ndp-out")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "output", "", nftjson.Jump("option-out")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "output", "", nftjson.Jump("cluster-out")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "output", "", nftjson.Jump("host-out")))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "output", "", nftjson.Jump("default-out")))
}

// PopulateBridge adds the table, every chain in BridgeChains, and the fixed
// baseline rule bodies for the guest table.
func PopulateBridge(b *nftjson.Builder, dhcp DHCPPorts) {
	b.AddTable(nftjson.Table{Family: nftjson.FamilyBridge, Name: BridgeTableName})

	for _, name := range BridgeChains {
		switch name {
		case "vm-in":
			b.AddChain(hookChain(nftjson.FamilyBridge, BridgeTableName, name, "forward", 0, "accept"))
		case "vm-out":
			b.AddChain(hookChain(nftjson.FamilyBridge, BridgeTableName, name, "forward", 0, "accept"))
		default:
			b.AddChain(chain(nftjson.FamilyBridge, BridgeTableName, name))
		}
	}

	AddVitalICMPv6Preamble(b, nftjson.FamilyBridge, BridgeTableName, "allow-ndp-in")
	AddVitalICMPv6Preamble(b, nftjson.FamilyBridge, BridgeTableName, "allow-ndp-out")

	// DHCP allow chains, ports sourced from insomniacslk/dhcp (§4.D, §6.3).
	b.AddRule(rule(nftjson.FamilyBridge, BridgeTableName, "allow-dhcp-in", "DHCPv4 client->server",
		nftjson.Match("==", nftjson.Payload("udp", "sport"), nftjson.Literal(dhcp.V4Client)),
		nftjson.Match("==", nftjson.Payload("udp", "dport"), nftjson.Literal(dhcp.V4Server)),
		nftjson.Accept(),
	))
	b.AddRule(rule(nftjson.FamilyBridge, BridgeTableName, "allow-dhcp-out", "DHCPv4 server->client",
		nftjson.Match("==", nftjson.Payload("udp", "sport"), nftjson.Literal(dhcp.V4Server)),
		nftjson.Match("==", nftjson.Payload("udp", "dport"), nftjson.Literal(dhcp.V4Client)),
		nftjson.Accept(),
	))
	b.AddRule(rule(nftjson.FamilyBridge, BridgeTableName, "allow-dhcp-in", "DHCPv6 client->server",
		nftjson.Match("==", nftjson.Payload("udp", "sport"), nftjson.Literal(dhcp.V6Client)),
		nftjson.Match("==", nftjson.Payload("udp", "dport"), nftjson.Literal(dhcp.V6Server)),
		nftjson.Accept(),
	))
	b.AddRule(rule(nftjson.FamilyBridge, BridgeTableName, "allow-dhcp-out", "DHCPv6 server->client, and Router Advertisement passthrough",
		nftjson.Match("==", nftjson.Payload("udp", "sport"), nftjson.Literal(dhcp.V6Server)),
		nftjson.Match("==", nftjson.Payload("udp", "dport"), nftjson.Literal(dhcp.V6Client)),
		nftjson.Accept(),
	))

	// ARP is matched via meta protocol (not ether type) so VLAN-encapsulated
	// ARP also matches, and is only ever handled in the guest table (§4.H
	// step 10).
	b.AddRule(rule(nftjson.FamilyBridge, BridgeTableName, "vm-in", "allow ARP regardless of VLAN encapsulation",
		nftjson.Match("==", nftjson.Meta("protocol"), nftjson.Literal("arp")),
		nftjson.Accept(),
	))

	// Bridge/layer-2 has no IP header to generate an ICMP unreachable from
	// (§9 Open Question, decided as `drop` — see DESIGN.md).
	b.AddRule(rule(nftjson.FamilyBridge, BridgeTableName, "do-reject", "", nftjson.Drop()))
}

// AddVitalICMPv6Preamble adds unconditional accepts for the RFC 4890 vital
// neighbor-discovery ICMPv6 types to chainName, exported so internal/compiler
// can reuse it when wiring cluster/host/guest chains that also need the
// preamble (§4.H step 9).
func AddVitalICMPv6Preamble(b *nftjson.Builder, family nftjson.Family, table, chainName string) {
	for _, t := range VitalICMPv6Types() {
		b.AddRule(rule(family, table, chainName, "RFC 4890 vital ND: "+t.NFTName,
			nftjson.Match("==", nftjson.Payload("icmpv6", "type"), nftjson.Literal(t.NFTName)),
			nftjson.Accept(),
		))
	}
}

func addSynfloodProtection(b *nftjson.Builder, opts model.HostOptions) {
	b.AddSet(nftjson.Set{
		Family: nftjson.FamilyInet, Table: InetTableName, Name: "v4-synflood-limit",
		Type: []string{"ipv4_addr"}, Flags: []string{"dynamic"}, Timeout: "60s",
	})
	b.AddSet(nftjson.Set{
		Family: nftjson.FamilyInet, Table: InetTableName, Name: "v6-synflood-limit",
		Type: []string{"ipv6_addr"}, Flags: []string{"dynamic"}, Timeout: "60s",
	})

	if !opts.ProtectionSynflood {
		return
	}

	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "block-synflood", "per-source SYN rate gate",
		nftjson.Match("==", nftjson.Payload("tcp", "flags"), nftjson.Literal("syn")),
		nftjson.Jump("ratelimit-synflood"),
	))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "ratelimit-synflood", "add offender to the dynamic rate-limit set and drop",
		nftjson.Match("add", nftjson.SetRef("v4-synflood-limit"), nftjson.Payload("ip", "saddr")),
		nftjson.Match("add", nftjson.SetRef("v6-synflood-limit"), nftjson.Payload("ip6", "saddr")),
		nftjson.Drop(),
	))
}

func addSmurfProtection(b *nftjson.Builder, opts model.HostOptions) {
	if !opts.NoSmurfs {
		return
	}
	// Only the limited-broadcast source address is matched, for any
	// protocol; multicast and subnet-broadcast sources are not.
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "block-smurfs", "limited-broadcast-sourced packets are never legitimate",
		nftjson.Match("==", nftjson.Payload("ip", "saddr"), nftjson.Literal("255.255.255.255")),
		nftjson.Jump("log-smurfs"),
	))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "log-smurfs", "",
		nftjson.LogExpr(nftjson.LogStatement{Prefix: "smurf: "}),
		nftjson.Jump("log-drop-smurfs"),
	))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "log-drop-smurfs", "", nftjson.Drop()))
}

func addInvalidTCPProtection(b *nftjson.Builder, opts model.HostOptions) {
	if !opts.TCPFlags {
		return
	}
	// Only the SYN+FIN combination is matched, and the path ends in a drop;
	// SYN+RST and null-flag packets are not matched here.
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "block-invalid-tcp", "drop the SYN+FIN flag combination",
		nftjson.Match("==", nftjson.Payload("tcp", "flags"), nftjson.Literal("syn|fin")),
		nftjson.Jump("log-invalid-tcp"),
	))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "log-invalid-tcp", "",
		nftjson.LogExpr(nftjson.LogStatement{Prefix: "invalid-tcp: "}),
		nftjson.Jump("log-drop-invalid-tcp"),
	))
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "log-drop-invalid-tcp", "", nftjson.Drop()))
}

func addConntrackInvalidGate(b *nftjson.Builder, opts model.HostOptions) {
	if opts.ConntrackAllowInvalid {
		return
	}
	b.AddRule(rule(nftjson.FamilyInet, InetTableName, "block-conntrack-invalid", "default nf_conntrack_allow_invalid=0 gate (§4.H step 3)",
		nftjson.Match("==", nftjson.CT("state"), nftjson.Literal("invalid")),
		nftjson.Drop(),
	))
}
