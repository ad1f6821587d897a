// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package model holds the typed data model the compiler operates on:
// aliases, IP sets, macros, security groups, the guest/VNet inventory, and
// rule trees (§3, §4.C–§4.G). Nothing in this package touches nftables
// syntax — that's internal/nftjson and internal/skeleton's job.
package model

import (
	"regexp"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

// Scope distinguishes datacenter-wide names from guest-local ones.
type Scope string

const (
	ScopeDatacenter Scope = "dc"
	ScopeGuest      Scope = "guest"
)

var nameSyntax = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ValidateName checks a name against §3's alias/set/group syntax:
// `[A-Za-z][A-Za-z0-9_]*` (underscore not first), widened to also permit
// internal hyphens. §3 names its own compiler-synthesized IP sets with a
// hyphen (the per-NIC "ipfilter-netN" sets, the per-VNet "<name>-allocated"
// set), and those go through the same SetRegistry.Add path as user-declared
// sets — a literal reading of the alias grammar would reject the compiler's
// own set names, so this validates the chain-name character class from §8
// invariant 4 (`[A-Za-z0-9/_-]`, minus the slash, which no bare name uses)
// instead for all three of alias/set/group names.
func ValidateName(name string) error {
	if !nameSyntax.MatchString(name) {
		return pferrors.NameSyntax(name)
	}
	return nil
}

// Alias maps one name to a single address within a scope.
type Alias struct {
	Scope   Scope
	Name    string
	Address addrport.Address
}

// AliasTable is the set of aliases defined within one scope, keyed by name.
type AliasTable struct {
	Scope  Scope
	byName map[string]Alias
}

// NewAliasTable returns an empty alias table for scope.
func NewAliasTable(scope Scope) *AliasTable {
	return &AliasTable{Scope: scope, byName: make(map[string]Alias)}
}

// Add registers a new alias. Returns DuplicateName if the name already
// exists in this scope, or NameSyntax if the name is malformed.
func (t *AliasTable) Add(name string, addr addrport.Address) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, exists := t.byName[name]; exists {
		return pferrors.DuplicateName(string(t.Scope), name)
	}
	t.byName[name] = Alias{Scope: t.Scope, Name: name, Address: addr}
	return nil
}

// Lookup returns the alias registered under name, if any.
func (t *AliasTable) Lookup(name string) (Alias, bool) {
	a, ok := t.byName[name]
	return a, ok
}

// Names returns every alias name in this table, for callers that need to
// iterate deterministically (combine with sort.Strings).
func (t *AliasTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	return names
}
