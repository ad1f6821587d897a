// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
	"github.com/proxmox/proxmox-firewall/internal/valuegrammar"
)

// chainSet names the three chains a rule's Direction can target. Forward is
// "" for scopes with no FORWARD chain of their own (host/cluster); a
// FORWARD-direction rule in such a scope is silently skipped, per §7's
// "inapplicable rule condition" policy rather than treated as an error.
type chainSet struct {
	In, Out, Forward string
}

func (c chainSet) target(dir valuegrammar.Direction) (string, bool) {
	switch dir {
	case valuegrammar.DirectionIn:
		return c.In, c.In != ""
	case valuegrammar.DirectionOut:
		return c.Out, c.Out != ""
	case valuegrammar.DirectionForward:
		return c.Forward, c.Forward != ""
	}
	return "", false
}

// emitRuleTree walks tree's enabled rules in order, emitting each into the
// chain its Direction selects (§4.G: order is preserved end to end).
func emitRuleTree(b *nftjson.Builder, fam nftjson.Family, table string, chains chainSet, localScope model.Scope, ownTag string, res *model.Resolver, tree model.RuleTree) error {
	for _, r := range tree.EnabledRules() {
		if err := emitRule(b, fam, table, chains, localScope, ownTag, res, r); err != nil {
			return err
		}
	}
	return nil
}

func emitRule(b *nftjson.Builder, fam nftjson.Family, table string, chains chainSet, localScope model.Scope, ownTag string, res *model.Resolver, r model.Rule) error {
	switch r.Action.Kind {
	case model.ActionGroup:
		return emitGroupRule(b, fam, table, chains, localScope, ownTag, res, r)
	case model.ActionMacro:
		return emitMacroRule(b, fam, table, chains, localScope, ownTag, res, r)
	default:
		return emitPolicyRule(b, fam, table, chains, localScope, ownTag, res, r)
	}
}

// emitGroupRule expands a GROUP reference at the reference site (§4.E),
// binding the reference's own -i interface to every rule in the group, then
// emitting each bound rule exactly as if it had appeared inline. A
// FORWARD-direction reference with an explicit interface is skipped
// entirely, per the policy model.SecurityGroup.BindInterface's own doc
// comment assigns to its caller (avoids double-filtering bridged traffic
// already gated by the NIC's own forward chain).
func emitGroupRule(b *nftjson.Builder, fam nftjson.Family, table string, chains chainSet, localScope model.Scope, ownTag string, res *model.Resolver, r model.Rule) error {
	if r.Direction == valuegrammar.DirectionForward && r.Iface != "" {
		return nil
	}
	group, err := res.ResolveGroup(r.Action.Name)
	if err != nil {
		return err
	}
	for _, bound := range group.BindInterface(r.Iface) {
		if err := emitRule(b, fam, table, chains, localScope, ownTag, res, bound); err != nil {
			return err
		}
	}
	return nil
}

// emitMacroRule expands a MACRO reference into one rule per fragment the
// macro's catalogue entry carries, restricted to the families the rule's own
// source/dest endpoints admit. A macro-driven rule always terminates in
// ACCEPT using the fragment's own proto/port/ICMP-type fields rather than the
// (presumed empty) ones on the referencing Rule itself — see the `rules.go`
// entry in DESIGN.md.
func emitMacroRule(b *nftjson.Builder, fam nftjson.Family, table string, chains chainSet, localScope model.Scope, ownTag string, res *model.Resolver, r model.Rule) error {
	target, ok := chains.target(r.Direction)
	if !ok {
		return nil
	}

	macro, err := res.ResolveMacro(r.Action.Name)
	if err != nil {
		return err
	}
	fragments, err := macro.Expand(model.MacroFamilyAny)
	if err != nil {
		return err
	}

	src, err := resolveEndpoint(r.Source, localScope, ownTag, res)
	if err != nil {
		return err
	}
	dst, err := resolveEndpoint(r.Dest, localScope, ownTag, res)
	if err != nil {
		return err
	}

	for _, frag := range fragments {
		families := candidateFamiliesForMacro(frag)
		for _, f := range families {
			srcOp, srcOK := src.forFamily(f)
			dstOp, dstOK := dst.forFamily(f)
			if !srcOK || !dstOK {
				continue
			}

			var expr []nftjson.Expression
			if e, ok := ifaceExpr(r); ok {
				expr = append(expr, e)
			}
			if !src.unconstrained {
				expr = append(expr, nftjson.Match("==", nftjson.Payload(f.ipPayloadProto(), "saddr"), srcOp))
				if nm, ok := src.noMatchForFamily(f); ok {
					expr = append(expr, nftjson.Match("!=", nftjson.Payload(f.ipPayloadProto(), "saddr"), nm))
				}
			}
			if !dst.unconstrained {
				expr = append(expr, nftjson.Match("==", nftjson.Payload(f.ipPayloadProto(), "daddr"), dstOp))
				if nm, ok := dst.noMatchForFamily(f); ok {
					expr = append(expr, nftjson.Match("!=", nftjson.Payload(f.ipPayloadProto(), "daddr"), nm))
				}
			}
			if frag.Proto != "" {
				expr = append(expr, nftjson.Match("==", nftjson.Meta("l4proto"), nftjson.Literal(frag.Proto)))
			}
			if frag.SPort != "" {
				op, err := portOperand(frag.SPort)
				if err != nil {
					return err
				}
				expr = append(expr, nftjson.Match("==", nftjson.Payload(frag.Proto, "sport"), op))
			}
			if frag.DPort != "" {
				op, err := portOperand(frag.DPort)
				if err != nil {
					return err
				}
				expr = append(expr, nftjson.Match("==", nftjson.Payload(frag.Proto, "dport"), op))
			}
			icmpType := frag.ICMPType
			if f == familyV6 {
				icmpType = frag.ICMP6Type
			}
			if icmpType != "" {
				expr = append(expr, nftjson.Match("==", nftjson.Payload(f.icmpProto(), "type"), nftjson.Literal(icmpType)))
			}
			expr = append(expr, nftjson.Accept())

			b.AddRule(nftjson.Rule{Family: fam, Table: table, Chain: target, Expr: expr, Comment: "macro " + r.Action.Name})
		}
	}
	return nil
}

func candidateFamiliesForMacro(f model.MacroFragment) []family {
	switch f.Family {
	case model.MacroFamilyV4:
		return []family{familyV4}
	case model.MacroFamilyV6:
		return []family{familyV6}
	default:
		return []family{familyV4, familyV6}
	}
}

// emitPolicyRule emits a plain ACCEPT/DROP/REJECT rule, splitting into one
// nftjson.Rule per address family the rule's own endpoints and protocol
// restriction admit (§4.A, §9).
func emitPolicyRule(b *nftjson.Builder, fam nftjson.Family, table string, chains chainSet, localScope model.Scope, ownTag string, res *model.Resolver, r model.Rule) error {
	target, ok := chains.target(r.Direction)
	if !ok {
		return nil
	}

	src, err := resolveEndpoint(r.Source, localScope, ownTag, res)
	if err != nil {
		return err
	}
	dst, err := resolveEndpoint(r.Dest, localScope, ownTag, res)
	if err != nil {
		return err
	}

	families := restrictFamiliesByProto(r.Proto, r.ICMPType)

	for _, f := range families {
		srcOp, srcOK := src.forFamily(f)
		dstOp, dstOK := dst.forFamily(f)
		if !srcOK || !dstOK {
			continue
		}

		var expr []nftjson.Expression
		if e, ok := ifaceExpr(r); ok {
			expr = append(expr, e)
		}
		if !src.unconstrained {
			expr = append(expr, nftjson.Match("==", nftjson.Payload(f.ipPayloadProto(), "saddr"), srcOp))
			if nm, ok := src.noMatchForFamily(f); ok {
				expr = append(expr, nftjson.Match("!=", nftjson.Payload(f.ipPayloadProto(), "saddr"), nm))
			}
		}
		if !dst.unconstrained {
			expr = append(expr, nftjson.Match("==", nftjson.Payload(f.ipPayloadProto(), "daddr"), dstOp))
			if nm, ok := dst.noMatchForFamily(f); ok {
				expr = append(expr, nftjson.Match("!=", nftjson.Payload(f.ipPayloadProto(), "daddr"), nm))
			}
		}
		if r.Proto != "" {
			expr = append(expr, nftjson.Match("==", nftjson.Meta("l4proto"), nftjson.Literal(r.Proto)))
		}
		if r.SPort != "" {
			op, err := portOperand(r.SPort)
			if err != nil {
				return err
			}
			expr = append(expr, nftjson.Match("==", nftjson.Payload(r.Proto, "sport"), op))
		}
		if r.DPort != "" {
			op, err := portOperand(r.DPort)
			if err != nil {
				return err
			}
			expr = append(expr, nftjson.Match("==", nftjson.Payload(r.Proto, "dport"), op))
		}
		// "any" (§4.B) matches every ICMP type, i.e. no narrower condition
		// than the proto restriction already applied above — so, like an
		// absent ICMPType, it emits no match statement at all.
		if r.ICMPType != "" && r.ICMPType != "any" {
			expr = append(expr, nftjson.Match("==", nftjson.Payload(f.icmpProto(), "type"), nftjson.Literal(r.ICMPType)))
		}
		if r.HasLog {
			expr = append(expr, nftjson.LogExpr(nftjson.LogStatement{Level: string(r.Log)}))
		}
		expr = append(expr, terminalVerdict(r.Action.Policy))

		b.AddRule(nftjson.Rule{Family: fam, Table: table, Chain: target, Expr: expr})
	}
	return nil
}

// ifaceExpr builds the -i IFACE match, bound to iifname for IN/FORWARD and
// oifname for OUT (§4.B).
func ifaceExpr(r model.Rule) (nftjson.Expression, bool) {
	if r.Iface == "" {
		return nftjson.Expression{}, false
	}
	key := "iifname"
	if r.Direction == valuegrammar.DirectionOut {
		key = "oifname"
	}
	return nftjson.Match("==", nftjson.Meta(key), nftjson.Literal(r.Iface)), true
}

// restrictFamiliesByProto narrows the family split for protocols that are
// inherently family-specific: icmp only ever rides on IPv4, icmpv6 only on
// IPv6 (§4.A). Every other protocol (including "") applies to both.
func restrictFamiliesByProto(proto, icmpType string) []family {
	switch proto {
	case "icmp":
		return []family{familyV4}
	case "icmpv6":
		return []family{familyV6}
	default:
		if icmpType != "" {
			// An ICMP type with no explicit proto field does not narrow
			// the split here: both families are returned, the same as for
			// any other protocol.
			return []family{familyV4, familyV6}
		}
		return []family{familyV4, familyV6}
	}
}

// terminalVerdict renders a rule's policy action as its nftjson verdict.
// REJECT always targets the shared "do-reject" chain so each table decides
// its own representation (a real ICMP/ICMPv6 unreachable on the inet table,
// a bare drop on the bridge table, which has no layer-3 context to reject
// from — §9 Open Question, decided).
func terminalVerdict(p valuegrammar.Policy) nftjson.Expression {
	switch p {
	case valuegrammar.PolicyReject:
		return nftjson.Jump("do-reject")
	case valuegrammar.PolicyDrop:
		return nftjson.Drop()
	default:
		// PolicyAccept, and the unset zero value — nftables' own base
		// chains default to accept, so an unconfigured policy_in/policy_out
		// matches that default rather than silently rejecting (§3).
		return nftjson.Accept()
	}
}
