// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

// HostOptions are the per-host option flags §4.H step 3 wires into the
// skeleton (protection_synflood, nosmurfs, tcpflags, and the conntrack
// invalid-state gate).
type HostOptions struct {
	ProtectionSynflood bool
	NoSmurfs           bool
	TCPFlags           bool

	// ConntrackAllowInvalid defaults to false (i.e. invalid packets are
	// blocked) per §4.H step 3's "nf_conntrack_allow_invalid=0 (default)".
	ConntrackAllowInvalid bool
}

// HostConfig is one host's own firewall configuration (§3): its options,
// rules, aliases, and IP sets.
type HostConfig struct {
	Options HostOptions
	Rules   RuleTree
	Aliases *AliasTable
	Sets    []IPSet
}

// ClusterConfig mirrors HostConfig but applies to every host in the cluster
// (§3). It shares the same shape deliberately — the compiler treats it as
// an earlier layer feeding the same cluster-in/out chains.
type ClusterConfig struct {
	Options HostOptions
	Rules   RuleTree
	Aliases *AliasTable
	Sets    []IPSet
}

// Inventory bundles every input the compiler's pure function consumes in
// one compile cycle (§6.1): host/cluster config, the guest list, the VNet
// list, and IPAM state. DisableFlag is carried alongside it by the caller
// (internal/compiler.Compile takes it as a separate argument, matching
// §4.H step 1's preflight check being logically prior to everything else).
type Inventory struct {
	Host    HostConfig
	Cluster ClusterConfig
	Guests  []Guest
	VNets   []VNet
	IPAM    IPAMState
	Groups  map[string]SecurityGroup
}
