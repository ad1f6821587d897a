// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import (
	"testing"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

func TestMacroCatalogueLookupUnknown(t *testing.T) {
	cat := DefaultMacroCatalogue()
	_, err := cat.Lookup("Frobnicate")
	if pferrors.GetCode(err) != pferrors.CodeUnknownMacro {
		t.Errorf("expected CodeUnknownMacro, got %v", pferrors.GetCode(err))
	}
}

func TestMacroExpandAny(t *testing.T) {
	cat := DefaultMacroCatalogue()
	m, err := cat.Lookup("DNS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frags, err := m.Expand(MacroFamilyAny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 2 {
		t.Errorf("expected 2 DNS fragments (udp+tcp), got %d", len(frags))
	}
}

func TestMacroExpandRestrictedFamily(t *testing.T) {
	cat := DefaultMacroCatalogue()
	m, err := cat.Lookup("Ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frags, err := m.Expand(MacroFamilyV4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 1 || frags[0].Proto != "icmp" {
		t.Errorf("expected single icmp fragment for v4-restricted Ping, got %+v", frags)
	}
}

func TestMacroExpandFamilyEmpty(t *testing.T) {
	cat := DefaultMacroCatalogue()
	m, err := cat.Lookup("DHCPv6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = m.Expand(MacroFamilyV4)
	if pferrors.GetCode(err) != pferrors.CodeMacroFamilyEmpty {
		t.Errorf("expected CodeMacroFamilyEmpty, got %v", pferrors.GetCode(err))
	}
}
