// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package nftjson

import "encoding/json"

// MarshalJSON renders a Chain, inlining its optional Hook at the top level
// (nft -j's own chain object has "hook"/"prio" as siblings of "family" and
// "table", not nested).
func (c Chain) MarshalJSON() ([]byte, error) {
	obj := map[string]any{
		"family": c.Family,
		"table":  c.Table,
		"name":   c.Name,
	}
	if c.Type != "" {
		obj["type"] = c.Type
	}
	if c.Hook != nil {
		obj["hook"] = c.Hook.Hook
		obj["prio"] = c.Hook.Priority
	}
	if c.Policy != "" {
		obj["policy"] = c.Policy
	}
	return json.Marshal(obj)
}

// MarshalJSON renders an ElementItem: a bare value, or {"elem":{"val":...,
// "verdict":{...}}} when it's a map entry carrying a verdict.
func (e ElementItem) MarshalJSON() ([]byte, error) {
	if e.Verdict == nil {
		return json.Marshal(e.Value)
	}
	verdict := Expression{Verdict: e.Verdict}
	return json.Marshal(map[string]any{
		"elem": map[string]any{
			"val":    e.Value,
			"verdict": json.RawMessage(mustMarshal(verdict)),
		},
	})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Expression.MarshalJSON never errors for the Verdict-only case this
		// helper is used for.
		panic(err)
	}
	return b
}

// MarshalJSON renders the Ruleset as nft -j's top-level
// {"nftables": [...]}  document.
func (r Ruleset) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"nftables": r.Commands})
}
