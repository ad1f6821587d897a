// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"strings"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

// Resolver performs the lexically-scoped name resolution §4.C describes:
// an unqualified name used within guest scope is tried against guest scope
// first, then datacenter scope; an explicit "dc/" or "guest/" prefix pins
// the scope directly. One Resolver is built per guest (or per host/cluster,
// where guest scope is simply absent) since alias and set tables are
// per-guest.
type Resolver struct {
	dcAliases    *AliasTable
	guestAliases *AliasTable // nil outside guest scope

	sets *SetRegistry

	macros MacroCatalogue
	groups map[string]SecurityGroup
}

// NewResolver builds a Resolver for datacenter (host/cluster) scope, with no
// guest aliases/sets in play.
func NewResolver(dcAliases *AliasTable, sets *SetRegistry, macros MacroCatalogue, groups map[string]SecurityGroup) *Resolver {
	return &Resolver{dcAliases: dcAliases, sets: sets, macros: macros, groups: groups}
}

// WithGuestScope returns a copy of the Resolver extended with one guest's
// own alias table, so unqualified names inside that guest's rules and sets
// resolve against the guest first.
func (r *Resolver) WithGuestScope(guestAliases *AliasTable) *Resolver {
	clone := *r
	clone.guestAliases = guestAliases
	return &clone
}

// splitScope pulls an explicit "dc/" or "guest/" prefix off name, returning
// the pinned scope (ok=true) or the bare name with ok=false if unqualified.
func splitScope(name string) (scope Scope, bare string, explicit bool) {
	if rest, found := strings.CutPrefix(name, "dc/"); found {
		return ScopeDatacenter, rest, true
	}
	if rest, found := strings.CutPrefix(name, "guest/"); found {
		return ScopeGuest, rest, true
	}
	return "", name, false
}

// ResolveAlias looks up name as an alias, honoring §4.C's scoping rule.
// localScope is the scope to try first for an unqualified name (the scope
// of the rule or set doing the referencing).
func (r *Resolver) ResolveAlias(localScope Scope, name string) (Alias, error) {
	if scope, bare, explicit := splitScope(name); explicit {
		table := r.aliasTable(scope)
		if table == nil {
			return Alias{}, pferrors.UnresolvedAlias(string(scope), bare)
		}
		a, ok := table.Lookup(bare)
		if !ok {
			return Alias{}, pferrors.UnresolvedAlias(string(scope), bare)
		}
		return a, nil
	}

	if table := r.aliasTable(localScope); table != nil {
		if a, ok := table.Lookup(name); ok {
			return a, nil
		}
	}
	if localScope != ScopeDatacenter {
		if table := r.aliasTable(ScopeDatacenter); table != nil {
			if a, ok := table.Lookup(name); ok {
				return a, nil
			}
		}
	}
	return Alias{}, pferrors.UnresolvedAlias(string(localScope), name)
}

func (r *Resolver) aliasTable(scope Scope) *AliasTable {
	switch scope {
	case ScopeGuest:
		return r.guestAliases
	case ScopeDatacenter:
		return r.dcAliases
	default:
		return nil
	}
}

// ResolveSet looks up name as an IP set, with the same scoping rule as
// ResolveAlias, then evaluates it into a ResolvedIPSet.
func (r *Resolver) ResolveSet(localScope Scope, name string) (ResolvedIPSet, error) {
	if scope, bare, explicit := splitScope(name); explicit {
		set, ok := r.sets.Lookup(scope, bare)
		if !ok {
			return ResolvedIPSet{}, pferrors.UnresolvedSetRef(name)
		}
		return set.Resolve(r)
	}

	if set, ok := r.sets.Lookup(localScope, name); ok {
		return set.Resolve(r)
	}
	if localScope != ScopeDatacenter {
		if set, ok := r.sets.Lookup(ScopeDatacenter, name); ok {
			return set.Resolve(r)
		}
	}
	return ResolvedIPSet{}, pferrors.UnresolvedSetRef(name)
}

// ResolveGroup looks up a security group by name. Groups are not scoped
// (§4.E gives no scoping rule for them, unlike aliases/sets).
func (r *Resolver) ResolveGroup(name string) (SecurityGroup, error) {
	g, ok := r.groups[name]
	if !ok {
		return SecurityGroup{}, pferrors.UnknownGroup(name)
	}
	return g, nil
}

// ResolveMacro looks up a macro by name.
func (r *Resolver) ResolveMacro(name string) (Macro, error) {
	return r.macros.Lookup(name)
}
