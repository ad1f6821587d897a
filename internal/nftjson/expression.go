// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package nftjson

import "encoding/json"

// Operand is one side of a match expression, or a bare value: a payload
// field (e.g. "ip saddr"), a meta key (e.g. "iifname"), a conntrack key
// (e.g. "ct state"), a concatenation of operands (e.g. "udp sport . udp
// dport", §4.I), a named set reference ("@setname"), or a literal value.
type Operand struct {
	payload *payloadOperand
	meta    *metaOperand
	ct      *ctOperand
	concat  []Operand
	setRef  string
	literal any
}

type payloadOperand struct {
	Protocol string `json:"protocol"`
	Field    string `json:"field"`
}

type metaOperand struct {
	Key string `json:"key"`
}

type ctOperand struct {
	Key string `json:"key"`
}

// Payload builds a protocol-field operand, e.g. Payload("ip", "saddr") for
// `ip saddr`, Payload("tcp", "dport") for `tcp dport`.
func Payload(protocol, field string) Operand {
	return Operand{payload: &payloadOperand{Protocol: protocol, Field: field}}
}

// Meta builds a meta-key operand, e.g. Meta("iifname") for `meta iifname`,
// Meta("protocol") for the ARP-over-VLAN match `meta protocol arp` (§4.H
// step 10).
func Meta(key string) Operand {
	return Operand{meta: &metaOperand{Key: key}}
}

// CT builds a conntrack-key operand, e.g. CT("state") for `ct state`.
func CT(key string) Operand {
	return Operand{ct: &ctOperand{Key: key}}
}

// Concat builds a concatenated operand, e.g. Concat(Payload("udp","sport"),
// Payload("udp","dport")) for `udp sport . udp dport`.
func Concat(ops ...Operand) Operand {
	return Operand{concat: ops}
}

// SetRef builds a named-set reference operand, e.g. SetRef("v4-dc/mgmt")
// for `@v4-dc/mgmt`.
func SetRef(name string) Operand {
	return Operand{setRef: name}
}

// Literal builds a bare literal operand: a string, a number, or a []any
// list (nftables inline set, e.g. `{ 80, 443 }`).
func Literal(value any) Operand {
	return Operand{literal: value}
}

// Prefix builds a CIDR literal operand, e.g. Prefix("10.0.0.0", 24) for
// `10.0.0.0/24`.
func Prefix(addr string, length int) Operand {
	return Operand{literal: map[string]any{
		"prefix": map[string]any{"addr": addr, "len": length},
	}}
}

// Range builds an inclusive range literal operand, e.g. Range("10.0.0.1",
// "10.0.0.9") for `10.0.0.1-10.0.0.9`.
func Range(lo, hi string) Operand {
	return Operand{literal: map[string]any{"range": []any{lo, hi}}}
}

// MarshalJSON renders an Operand in the shape nft -j uses for expression
// trees: {"payload":{...}}, {"meta":{...}}, {"ct":{...}}, {"concat":[...]},
// a bare "@name" string for a set reference, or the literal value itself.
func (o Operand) MarshalJSON() ([]byte, error) {
	switch {
	case o.payload != nil:
		return json.Marshal(map[string]any{"payload": o.payload})
	case o.meta != nil:
		return json.Marshal(map[string]any{"meta": o.meta})
	case o.ct != nil:
		return json.Marshal(map[string]any{"ct": o.ct})
	case o.concat != nil:
		return json.Marshal(map[string]any{"concat": o.concat})
	case o.setRef != "":
		return json.Marshal("@" + o.setRef)
	default:
		return json.Marshal(o.literal)
	}
}

// MatchStatement is a comparison between two operands, e.g. `ip saddr ==
// 10.0.0.0/24`.
type MatchStatement struct {
	Op    string  `json:"op"`
	Left  Operand `json:"left"`
	Right Operand `json:"right"`
}

// VerdictStatement is a terminal or control-flow verdict: accept, drop,
// reject (optionally "with" a reject type), jump, or goto (§4.H steps 6–8).
type VerdictStatement struct {
	Kind       string // "accept", "drop", "reject", "jump", "goto", "return"
	RejectWith string // e.g. "icmp-port-unreachable"; "" for a bare reject
	Target     string // chain name, for jump/goto
}

// LogStatement logs a packet before falling through to the next statement
// (never terminal on its own).
type LogStatement struct {
	Prefix string `json:"prefix,omitempty"`
	Level  string `json:"level,omitempty"`
	Group  int    `json:"group,omitempty"`
}

// Expression is one statement in a rule's expression list (§4.I). Exactly
// one field is set.
type Expression struct {
	Match   *MatchStatement
	Verdict *VerdictStatement
	Counter bool
	Log     *LogStatement
}

// Match builds a comparison Expression.
func Match(op string, left, right Operand) Expression {
	return Expression{Match: &MatchStatement{Op: op, Left: left, Right: right}}
}

// Accept builds the terminal `accept` verdict.
func Accept() Expression { return Expression{Verdict: &VerdictStatement{Kind: "accept"}} }

// Drop builds the terminal `drop` verdict.
func Drop() Expression { return Expression{Verdict: &VerdictStatement{Kind: "drop"}} }

// Reject builds the terminal `reject` verdict, optionally `with` a specific
// ICMP/ICMPv6 rejection type. An empty rejectWith produces a bare `reject`.
func Reject(rejectWith string) Expression {
	return Expression{Verdict: &VerdictStatement{Kind: "reject", RejectWith: rejectWith}}
}

// Jump builds a non-terminal `jump target` verdict.
func Jump(target string) Expression {
	return Expression{Verdict: &VerdictStatement{Kind: "jump", Target: target}}
}

// Goto builds a terminal `goto target` verdict.
func Goto(target string) Expression {
	return Expression{Verdict: &VerdictStatement{Kind: "goto", Target: target}}
}

// Return builds a `return` verdict, leaving the current chain early.
func Return() Expression { return Expression{Verdict: &VerdictStatement{Kind: "return"}} }

// CounterExpr builds a packet/byte counter statement.
func CounterExpr() Expression { return Expression{Counter: true} }

// LogExpr builds a log statement.
func LogExpr(log LogStatement) Expression { return Expression{Log: &log} }

// MarshalJSON renders an Expression as the matching nft -j statement
// object: {"match":{...}}, {"accept":null}, {"jump":{"target":"..."}},
// {"counter":null}, {"log":{...}}.
func (e Expression) MarshalJSON() ([]byte, error) {
	switch {
	case e.Match != nil:
		return json.Marshal(map[string]any{"match": e.Match})
	case e.Verdict != nil:
		switch e.Verdict.Kind {
		case "accept", "drop", "return":
			return json.Marshal(map[string]any{e.Verdict.Kind: nil})
		case "reject":
			body := map[string]any{}
			if e.Verdict.RejectWith != "" {
				body["expr"] = e.Verdict.RejectWith
			}
			return json.Marshal(map[string]any{"reject": body})
		case "jump", "goto":
			return json.Marshal(map[string]any{e.Verdict.Kind: map[string]any{"target": e.Verdict.Target}})
		}
	case e.Counter:
		return json.Marshal(map[string]any{"counter": nil})
	case e.Log != nil:
		return json.Marshal(map[string]any{"log": e.Log})
	}
	return json.Marshal(map[string]any{})
}
