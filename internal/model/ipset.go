// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"sort"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

// IPSetEntryKind distinguishes the three entry shapes §3's IpSet allows.
type IPSetEntryKind int

const (
	IPSetEntryAddress IPSetEntryKind = iota
	IPSetEntryAliasRef
)

// IPSetEntry is one line of an `[IPSET name]` section: a raw address, or a
// reference to an alias (resolved later against a Resolver), optionally
// negated ("!entry", destined for the matching "*-nomatch" set).
type IPSetEntry struct {
	Kind     IPSetEntryKind
	Address  addrport.Address // valid when Kind == IPSetEntryAddress
	AliasRef string           // valid when Kind == IPSetEntryAliasRef
	Negated  bool
}

// IPSet is a named, ordered collection of entries (§3), scoped to either the
// datacenter or one guest/VNet.
type IPSet struct {
	Scope   Scope
	Name    string
	Entries []IPSetEntry
}

// ResolvedIPSet is the family-split result of evaluating an IPSet against a
// Resolver (§4.C): every v4 address (including CIDR/range) in V4, every v6
// in V6, negated entries in the matching NoMatch set, and any bare MACs in
// MAC (Guest NICs only ever produce MAC-only sets in practice, but nothing
// here forbids a mixed set).
type ResolvedIPSet struct {
	Scope     Scope
	Name      string
	V4        []addrport.Address
	V6        []addrport.Address
	V4NoMatch []addrport.Address
	V6NoMatch []addrport.Address
	MAC       []addrport.Address
}

// EmptyV4, EmptyV6 and EmptyMAC report whether a resolved set has no
// members (positive or nomatch) of a given family,
// which callers use to decide whether to elide a "v4-scope/name" or
// "v6-scope/name" nftables set entirely (§4.C).
func (r ResolvedIPSet) EmptyV4() bool  { return len(r.V4) == 0 && len(r.V4NoMatch) == 0 }
func (r ResolvedIPSet) EmptyV6() bool  { return len(r.V6) == 0 && len(r.V6NoMatch) == 0 }
func (r ResolvedIPSet) EmptyMAC() bool { return len(r.MAC) == 0 }

// Resolve evaluates set against res, splitting entries by address family
// and routing negated entries to the "*-nomatch" buckets. Alias references
// are looked up through res using set's own scope for unqualified names.
func (set IPSet) Resolve(res *Resolver) (ResolvedIPSet, error) {
	out := ResolvedIPSet{Scope: set.Scope, Name: set.Name}

	for _, entry := range set.Entries {
		addr := entry.Address
		negated := entry.Negated || entry.Address.Negated
		if entry.Kind == IPSetEntryAliasRef {
			alias, err := res.ResolveAlias(set.Scope, entry.AliasRef)
			if err != nil {
				return ResolvedIPSet{}, err
			}
			addr = alias.Address
		}

		switch addr.Family {
		case addrport.FamilyV4:
			if negated {
				out.V4NoMatch = append(out.V4NoMatch, addr)
			} else {
				out.V4 = append(out.V4, addr)
			}
		case addrport.FamilyV6:
			if negated {
				out.V6NoMatch = append(out.V6NoMatch, addr)
			} else {
				out.V6 = append(out.V6, addr)
			}
		case addrport.FamilyMAC:
			out.MAC = append(out.MAC, addr)
		}
	}

	return out, nil
}

// SetRegistry indexes every IPSet by (scope, name) for resolver lookups.
type SetRegistry struct {
	sets map[Scope]map[string]IPSet
}

// NewSetRegistry returns an empty registry.
func NewSetRegistry() *SetRegistry {
	return &SetRegistry{sets: make(map[Scope]map[string]IPSet)}
}

// Add registers set, failing with DuplicateName if its scope already has a
// set of that name.
func (r *SetRegistry) Add(set IPSet) error {
	if err := ValidateName(set.Name); err != nil {
		return err
	}
	if r.sets[set.Scope] == nil {
		r.sets[set.Scope] = make(map[string]IPSet)
	}
	if _, exists := r.sets[set.Scope][set.Name]; exists {
		return pferrors.DuplicateName(string(set.Scope), set.Name)
	}
	r.sets[set.Scope][set.Name] = set
	return nil
}

// Lookup finds a set by scope and name.
func (r *SetRegistry) Lookup(scope Scope, name string) (IPSet, bool) {
	byName, ok := r.sets[scope]
	if !ok {
		return IPSet{}, false
	}
	set, ok := byName[name]
	return set, ok
}

// AllInScope returns every set registered under scope, ordered by name for
// the compiler's deterministic-iteration requirement (§4.H "Determinism").
func (r *SetRegistry) AllInScope(scope Scope) []IPSet {
	byName := r.sets[scope]
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]IPSet, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n])
	}
	return out
}
