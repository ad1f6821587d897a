// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package valuegrammar

import (
	"testing"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

func TestParseRuleLineBasic(t *testing.T) {
	rl, err := ParseRuleLine("IN ACCEPT -p tcp -dport 22 -source 10.0.0.0/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rl.Direction != DirectionIn || rl.Action != "ACCEPT" {
		t.Errorf("unexpected direction/action: %+v", rl)
	}
	if rl.Proto != "tcp" || rl.DPort != "22" || rl.Source != "10.0.0.0/24" {
		t.Errorf("unexpected fields: %+v", rl)
	}
}

func TestParseRuleLineOrderInsensitive(t *testing.T) {
	a, err := ParseRuleLine("OUT DROP -dport 80 -p tcp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ParseRuleLine("OUT DROP -p tcp -dport 80")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected order-insensitive parse to produce equal results: %+v vs %+v", a, b)
	}
}

func TestParseRuleLineLog(t *testing.T) {
	rl, err := ParseRuleLine("IN ACCEPT -log info")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rl.HasLog || rl.Log != LogInfo {
		t.Errorf("expected HasLog true and Log=info, got %+v", rl)
	}
}

func TestParseRuleLineUnknownOption(t *testing.T) {
	_, err := ParseRuleLine("IN ACCEPT -bogus value")
	if pferrors.GetCode(err) != pferrors.CodeUnknownOption {
		t.Errorf("expected CodeUnknownOption, got %v", pferrors.GetCode(err))
	}
}

func TestParseRuleLineMissingValue(t *testing.T) {
	_, err := ParseRuleLine("IN ACCEPT -p")
	if pferrors.GetCode(err) != pferrors.CodeMissingRequired {
		t.Errorf("expected CodeMissingRequired, got %v", pferrors.GetCode(err))
	}
}

func TestParseRuleLineBadDirection(t *testing.T) {
	_, err := ParseRuleLine("SIDEWAYS ACCEPT")
	if pferrors.GetCode(err) != pferrors.CodeBadValue {
		t.Errorf("expected CodeBadValue, got %v", pferrors.GetCode(err))
	}
}

func TestParseBool(t *testing.T) {
	v, err := ParseBool("1")
	if err != nil || !v {
		t.Errorf("expected true, got %v, %v", v, err)
	}
	if _, err := ParseBool("yes"); pferrors.GetCode(err) != pferrors.CodeBadValue {
		t.Errorf("expected CodeBadValue for 'yes', got %v", pferrors.GetCode(err))
	}
}

func TestParseLogLevel(t *testing.T) {
	if _, err := ParseLogLevel("nolog"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseLogLevel("bogus"); pferrors.GetCode(err) != pferrors.CodeBadValue {
		t.Errorf("expected CodeBadValue, got %v", pferrors.GetCode(err))
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("accept")
	if err != nil || p != PolicyAccept {
		t.Errorf("expected PolicyAccept, got %v, %v", p, err)
	}
	if _, err := ParsePolicy("MAYBE"); pferrors.GetCode(err) != pferrors.CodeInvalidPolicy {
		t.Errorf("expected CodeInvalidPolicy, got %v", pferrors.GetCode(err))
	}
}
