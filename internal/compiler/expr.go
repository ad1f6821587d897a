// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"strconv"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
)

// family is the two address families a rule's expansion can split across;
// MAC-only matching never drives a rule's family split so it has no member
// here (§4.A, §9 "IP set family split").
type family int

const (
	familyV4 family = iota
	familyV6
)

func (f family) ipPayloadProto() string {
	if f == familyV4 {
		return "ip"
	}
	return "ip6"
}

func (f family) icmpProto() string {
	if f == familyV4 {
		return "icmp"
	}
	return "icmpv6"
}

// resolvedEndpoint is a rule's Source/Dest after alias/set resolution,
// split by family: operandV4/operandV6 are nil when the endpoint has no
// member of that family (an unqualified set referencing only v6 addresses,
// for instance), in which case a rule restricted to that family is simply
// not generated for this endpoint at all — per §7, an address family with
// no matching members is an inapplicable condition, not an error.
type resolvedEndpoint struct {
	unconstrained bool // EndpointNone: matches every family, no operand needed
	hasV4, hasV6  bool
	operandV4     nftjson.Operand
	operandV6     nftjson.Operand

	// noMatchV4/noMatchV6 name the "*-nomatch" set holding this endpoint's
	// negated ("!entry") members, if any (§4.C, glossary "nomatch set").
	// A rule whose endpoint resolves to a set with nomatch members must
	// additionally exclude membership in that set — the positive match
	// above only ever covers the non-negated entries.
	hasNoMatchV4, hasNoMatchV6 bool
	noMatchV4, noMatchV6       nftjson.Operand
}

// resolveEndpoint evaluates one rule endpoint against res, returning the
// per-family operand(s) to match against (a literal address, or a reference
// to the set the endpoint names). localScope is the scope of the rule doing
// the referencing; ownTag is the nftables-visible scope tag of that same
// rule's owner (e.g. "guest100"), used only when the endpoint resolves to a
// set actually owned by that same guest scope — a set found in datacenter
// scope is always tagged "dc" regardless of the caller's own tag, since dc
// sets are duplicated under the "dc" tag into both managed tables.
func resolveEndpoint(ep model.Endpoint, localScope model.Scope, ownTag string, res *model.Resolver) (resolvedEndpoint, error) {
	switch ep.Kind {
	case model.EndpointNone:
		return resolvedEndpoint{unconstrained: true}, nil

	case model.EndpointAddress:
		return addressEndpoint(ep.Address), nil

	case model.EndpointAliasRef:
		alias, err := res.ResolveAlias(localScope, ep.Ref)
		if err != nil {
			return resolvedEndpoint{}, err
		}
		return addressEndpoint(alias.Address), nil

	case model.EndpointSetRef:
		rs, err := res.ResolveSet(localScope, ep.Ref)
		if err != nil {
			return resolvedEndpoint{}, err
		}
		tag := ownTag
		if rs.Scope == model.ScopeDatacenter {
			tag = "dc"
		}
		out := resolvedEndpoint{}
		if !rs.EmptyV4() {
			out.hasV4 = true
			out.operandV4 = nftjson.SetRef(v4SetName(tag, rs.Name))
		}
		if !rs.EmptyV6() {
			out.hasV6 = true
			out.operandV6 = nftjson.SetRef(v6SetName(tag, rs.Name))
		}
		if len(rs.V4NoMatch) > 0 {
			out.hasNoMatchV4 = true
			out.noMatchV4 = nftjson.SetRef(v4NoMatchName(tag, rs.Name))
		}
		if len(rs.V6NoMatch) > 0 {
			out.hasNoMatchV6 = true
			out.noMatchV6 = nftjson.SetRef(v6NoMatchName(tag, rs.Name))
		}
		return out, nil
	}
	return resolvedEndpoint{unconstrained: true}, nil
}

func addressEndpoint(a addrport.Address) resolvedEndpoint {
	out := resolvedEndpoint{}
	op := addressOperand(a)
	switch a.Family {
	case addrport.FamilyV4:
		out.hasV4 = true
		out.operandV4 = op
	case addrport.FamilyV6:
		out.hasV6 = true
		out.operandV6 = op
	}
	return out
}

// addressOperand renders a single resolved address as a match operand: a
// bare literal for a singleton, a Prefix for a CIDR, or a Range.
func addressOperand(a addrport.Address) nftjson.Operand {
	if a.PrefixLen >= 0 {
		return nftjson.Prefix(a.Lo.String(), a.PrefixLen)
	}
	if a.IsSingleton() {
		return nftjson.Literal(a.Lo.String())
	}
	return nftjson.Range(a.Lo.String(), a.Hi.String())
}

// forFamily reports whether this endpoint applies to f, and if so, the
// operand to match it with (nil operand + true means "unconstrained",
// i.e. no match statement needed at all for this endpoint in f).
func (e resolvedEndpoint) forFamily(f family) (op nftjson.Operand, applies bool) {
	if e.unconstrained {
		return nftjson.Operand{}, true
	}
	if f == familyV4 && e.hasV4 {
		return e.operandV4, true
	}
	if f == familyV6 && e.hasV6 {
		return e.operandV6, true
	}
	return nftjson.Operand{}, false
}

// noMatchForFamily reports the nomatch-set operand to exclude for f, if this
// endpoint's resolved set carries any negated ("!entry") members in that
// family.
func (e resolvedEndpoint) noMatchForFamily(f family) (op nftjson.Operand, has bool) {
	if f == familyV4 && e.hasNoMatchV4 {
		return e.noMatchV4, true
	}
	if f == familyV6 && e.hasNoMatchV6 {
		return e.noMatchV6, true
	}
	return nftjson.Operand{}, false
}

// portOperand renders a rule's -sport/-dport value (a single port, or a
// comma list — §4.B) as a match operand. A lone range token becomes a
// Range; a comma list becomes an inline literal list in which single
// tokens are bare numbers and range tokens are range elements, so a
// mixture such as "123,222:333" keeps both bounds of every range.
func portOperand(csv string) (nftjson.Operand, error) {
	ports, err := addrport.ParsePortList(csv)
	if err != nil {
		return nftjson.Operand{}, err
	}
	if len(ports) == 1 {
		p := ports[0]
		if p.IsSingle() {
			return nftjson.Literal(int(p.Lo)), nil
		}
		return nftjson.Range(strconv.Itoa(int(p.Lo)), strconv.Itoa(int(p.Hi))), nil
	}
	vals := make([]any, len(ports))
	for i, p := range ports {
		if p.IsSingle() {
			vals[i] = int(p.Lo)
		} else {
			vals[i] = map[string]any{"range": []any{int(p.Lo), int(p.Hi)}}
		}
	}
	return nftjson.Literal(vals), nil
}
