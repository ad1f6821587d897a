// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"testing"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

func mustAddr(t *testing.T, s string) addrport.Address {
	t.Helper()
	a, err := addrport.ParseAddress(s)
	if err != nil {
		t.Fatalf("unexpected error parsing %q: %v", s, err)
	}
	return a
}

func TestAliasTableAddAndLookup(t *testing.T) {
	tbl := NewAliasTable(ScopeDatacenter)
	if err := tbl.Add("web", mustAddr(t, "10.0.0.1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, ok := tbl.Lookup("web")
	if !ok {
		t.Fatal("expected alias to be found")
	}
	if a.Address.Literal != "10.0.0.1" {
		t.Errorf("unexpected alias address: %+v", a)
	}
}

func TestAliasTableDuplicate(t *testing.T) {
	tbl := NewAliasTable(ScopeDatacenter)
	_ = tbl.Add("web", mustAddr(t, "10.0.0.1"))
	err := tbl.Add("web", mustAddr(t, "10.0.0.2"))
	if pferrors.GetCode(err) != pferrors.CodeDuplicateName {
		t.Errorf("expected CodeDuplicateName, got %v", pferrors.GetCode(err))
	}
}

func TestAliasTableBadSyntax(t *testing.T) {
	tbl := NewAliasTable(ScopeDatacenter)
	err := tbl.Add("1web", mustAddr(t, "10.0.0.1"))
	if pferrors.GetCode(err) != pferrors.CodeNameSyntax {
		t.Errorf("expected CodeNameSyntax, got %v", pferrors.GetCode(err))
	}
}
