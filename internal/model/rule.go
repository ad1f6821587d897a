// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"github.com/proxmox/proxmox-firewall/internal/addrport"
	"github.com/proxmox/proxmox-firewall/internal/valuegrammar"
)

// ActionKind distinguishes a terminal policy action from a GROUP/MACRO
// reference that expands to more rules at the reference site (§3, §4.E,
// §4.D).
type ActionKind int

const (
	ActionPolicy ActionKind = iota
	ActionGroup
	ActionMacro
)

// Action is a rule's action field: one of ACCEPT/DROP/REJECT, a named
// security group reference, or a named macro reference.
type Action struct {
	Kind   ActionKind
	Policy valuegrammar.Policy // valid when Kind == ActionPolicy
	Name   string              // valid when Kind == ActionGroup or ActionMacro
}

// EndpointKind distinguishes the three shapes a rule's source/dest can take.
type EndpointKind int

const (
	EndpointNone EndpointKind = iota
	EndpointAddress
	EndpointAliasRef
	EndpointSetRef
)

// Endpoint is a rule's source or dest field (§3): unset, a raw address, an
// alias reference, or an IP-set reference.
type Endpoint struct {
	Kind    EndpointKind
	Address addrport.Address
	Ref     string
}

// Rule is one line of a `[RULES]` section, already parsed into typed fields
// (§3). Provenance (file, scope, line index) is attached separately by the
// caller via pferrors.WithProvenance when a Rule fails validation, rather
// than carried on the struct itself, so Rule stays a plain value type.
type Rule struct {
	Direction valuegrammar.Direction
	Action    Action
	Enabled   bool

	Iface string

	Source Endpoint
	Dest   Endpoint

	Proto string
	SPort string
	DPort string

	ICMPType string

	Log    valuegrammar.LogLevel
	HasLog bool
}

// RuleTree is an ordered, authoritative list of rules for one scope (host,
// cluster, one guest, or one VNet). Order is preserved end to end (§4.G).
type RuleTree struct {
	Scope Scope
	Rules []Rule
}

// EnabledRules returns the subset of the tree's rules with Enabled set, in
// declaration order — disabled rules are skipped entirely (§4.G).
func (t RuleTree) EnabledRules() []Rule {
	out := make([]Rule, 0, len(t.Rules))
	for _, r := range t.Rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// SecurityGroup is a named, ordered rule list referenced by a GROUP action
// (§3, §4.E).
type SecurityGroup struct {
	Name  string
	Rules []Rule
}

// BindInterface expands the group's rules at a reference site, adding the
// iifname (IN/FORWARD) or oifname (OUT) predicate every rule inherits from
// the GROUP reference's own `-i IFACE` binding (§4.E). In the FORWARD
// direction with an interface specified, the caller must skip applying the
// group entirely rather than call BindInterface — that's a documented
// policy decision to avoid double-filtering bridged traffic, decided by the
// caller (internal/compiler), not this method.
func (g SecurityGroup) BindInterface(iface string) []Rule {
	out := make([]Rule, len(g.Rules))
	for i, r := range g.Rules {
		bound := r
		bound.Iface = iface
		out[i] = bound
	}
	return out
}
