// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package nftjson models the subset of `nft -j`'s own JSON schema the
// compiler emits: a top-level {"nftables": [...]} array of command objects,
// each wrapping one add/flush/delete of a table, chain, set, map, or rule
// (§4.I). Expressions are modeled as a small tagged-union tree (concat,
// payload match, meta match, verdict) so the serializer never hand-builds
// match strings the way a text-script builder would.
package nftjson

// Family is one of the nftables address families this compiler's two
// managed tables use (§6.3): "inet" for the host table, "bridge" for the
// guest table.
type Family string

const (
	FamilyInet   Family = "inet"
	FamilyBridge Family = "bridge"
)

// Ruleset is the full, ordered command sequence for one compile cycle,
// serialized as the single top-level "nftables" array (§4.I, §6.2): the
// external applier executes the whole array atomically.
type Ruleset struct {
	Commands []Command
}

// Command is one nftables JSON command object. Exactly one field is set,
// mirroring `nft -j`'s own "add"/"flush"/"delete" object shape.
type Command struct {
	Add    *AddObject    `json:"add,omitempty"`
	Flush  *FlushObject  `json:"flush,omitempty"`
	Delete *DeleteObject `json:"delete,omitempty"`
}

// AddObject wraps exactly one of the addable entity kinds.
type AddObject struct {
	Table   *Table   `json:"table,omitempty"`
	Chain   *Chain   `json:"chain,omitempty"`
	Set     *Set     `json:"set,omitempty"`
	Map     *Map     `json:"map,omitempty"`
	Element *Element `json:"element,omitempty"`
	Rule    *Rule    `json:"rule,omitempty"`
}

// FlushObject wraps exactly one of the flushable entity kinds.
type FlushObject struct {
	Table *TableRef `json:"table,omitempty"`
	Chain *ChainRef `json:"chain,omitempty"`
}

// DeleteObject wraps exactly one of the deletable entity kinds.
type DeleteObject struct {
	Table *TableRef `json:"table,omitempty"`
}

// TableRef identifies a table for flush/delete commands.
type TableRef struct {
	Family Family `json:"family"`
	Name   string `json:"name"`
}

// ChainRef identifies a chain for flush commands.
type ChainRef struct {
	Family Family `json:"family"`
	Table  string `json:"table"`
	Name   string `json:"name"`
}

// Table declares one managed table.
type Table struct {
	Family Family `json:"family"`
	Name   string `json:"name"`
}

// Hook describes a base chain's netfilter hook attachment. A regular
// (non-base) chain omits Hook entirely.
type Hook struct {
	Hook     string `json:"hook"`
	Priority int    `json:"prio"`
}

// Chain declares one chain, optionally a base chain bound to a hook (§6.3's
// input/output/vm-in/vm-out hook chains; every other chain in the skeleton
// is a regular, jump-only chain).
type Chain struct {
	Family Family `json:"family"`
	Table  string `json:"table"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"` // "filter"
	Hook   *Hook  `json:"-"`
	Policy string `json:"policy,omitempty"` // "accept" or "drop"
}

// SetTypeOf describes a concatenated set key, e.g. ["ifname"] or
// ["ipv4_addr", "ipv4_addr"] for a `meta day . meta hour`-style set (§4.H
// step 4's time-of-day sets are out of scope here since this compiler has
// no scheduling component, but the shape is kept general for vm-map-in/out,
// which concatenates nothing and keys purely on ifname).
type SetTypeOf struct {
	Types []string
}

// Set declares one nftables set (§4.C's v4/v6/nomatch sets, and the
// per-source rate-limit sets the SYN-flood protection uses).
type Set struct {
	Family    Family    `json:"family"`
	Table     string    `json:"table"`
	Name      string    `json:"name"`
	Type      []string  `json:"type"`
	Flags     []string  `json:"flags,omitempty"` // "interval", "dynamic"
	Timeout   string    `json:"timeout,omitempty"`
	AutoMerge bool      `json:"auto_merge,omitempty"`
}

// Map declares one nftables map (vm-map-in/out: ifname -> verdict).
type Map struct {
	Family Family `json:"family"`
	Table  string `json:"table"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Map    string `json:"map"` // value type, "verdict" for vm-map-in/out
}

// Element adds members to an existing set or map (§4.H step 4's set
// population, and IPAM-driven VNet address sets).
type Element struct {
	Family Family        `json:"family"`
	Table  string        `json:"table"`
	Name   string        `json:"name"`
	Elem   []ElementItem `json:"elem"`
}

// ElementItem is one member of a set/map element list. For a plain set
// member, only Value is set; for a map entry, Value is the key and Verdict
// carries the jump/goto target.
type ElementItem struct {
	Value   any               `json:"-"`
	Verdict *VerdictStatement `json:"-"`
}

// Rule adds one rule to a chain, with its match expression and final
// verdict statement (§4.I).
type Rule struct {
	Family  Family       `json:"family"`
	Table   string       `json:"table"`
	Chain   string       `json:"chain"`
	Expr    []Expression `json:"expr"`
	Comment string       `json:"comment,omitempty"`
}
