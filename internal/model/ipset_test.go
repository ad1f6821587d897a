// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"testing"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	dc := NewAliasTable(ScopeDatacenter)
	if err := dc.Add("mgmt", mustAddr(t, "10.0.0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dc.Add("mgmt6", mustAddr(t, "2001:db8::5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sets := NewSetRegistry()
	return NewResolver(dc, sets, DefaultMacroCatalogue(), map[string]SecurityGroup{})
}

func TestIPSetResolveFamilySplit(t *testing.T) {
	res := newTestResolver(t)

	set := IPSet{
		Scope: ScopeDatacenter,
		Name:  "mixed",
		Entries: []IPSetEntry{
			{Kind: IPSetEntryAddress, Address: mustAddr(t, "10.0.1.0/24")},
			{Kind: IPSetEntryAddress, Address: mustAddr(t, "2001:db8:1::/64")},
			{Kind: IPSetEntryAddress, Address: mustAddr(t, "!10.0.2.1")},
		},
	}

	resolved, err := set.Resolve(res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved.V4) != 1 || len(resolved.V6) != 1 {
		t.Errorf("expected 1 v4 and 1 v6 member, got v4=%d v6=%d", len(resolved.V4), len(resolved.V6))
	}
	if len(resolved.V4NoMatch) != 1 {
		t.Errorf("expected 1 v4 nomatch member, got %d", len(resolved.V4NoMatch))
	}
	if resolved.EmptyV6() {
		t.Error("expected non-empty v6 set")
	}
}

func TestIPSetResolveAliasRef(t *testing.T) {
	res := newTestResolver(t)
	set := IPSet{
		Scope: ScopeDatacenter,
		Name:  "mgmt-hosts",
		Entries: []IPSetEntry{
			{Kind: IPSetEntryAliasRef, AliasRef: "mgmt"},
			{Kind: IPSetEntryAliasRef, AliasRef: "mgmt6"},
		},
	}
	resolved, err := set.Resolve(res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved.V4) != 1 || len(resolved.V6) != 1 {
		t.Errorf("expected alias refs to resolve to one v4 and one v6 member, got %+v", resolved)
	}
}

func TestIPSetResolveUnresolvedAlias(t *testing.T) {
	res := newTestResolver(t)
	set := IPSet{
		Scope:   ScopeDatacenter,
		Name:    "broken",
		Entries: []IPSetEntry{{Kind: IPSetEntryAliasRef, AliasRef: "nonexistent"}},
	}
	_, err := set.Resolve(res)
	if pferrors.GetCode(err) != pferrors.CodeUnresolvedAlias {
		t.Errorf("expected CodeUnresolvedAlias, got %v", pferrors.GetCode(err))
	}
}

func TestSetRegistryDuplicate(t *testing.T) {
	reg := NewSetRegistry()
	set := IPSet{Scope: ScopeDatacenter, Name: "a"}
	if err := reg.Add(set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Add(set); pferrors.GetCode(err) != pferrors.CodeDuplicateName {
		t.Errorf("expected CodeDuplicateName, got %v", pferrors.GetCode(err))
	}
}
