// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package addrport

import (
	"testing"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

func TestParseAddressSingle(t *testing.T) {
	a, err := ParseAddress("10.0.0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Family != FamilyV4 {
		t.Errorf("expected FamilyV4, got %v", a.Family)
	}
	if !a.IsSingleton() {
		t.Error("expected singleton address")
	}
}

func TestParseAddressCIDR(t *testing.T) {
	a, err := ParseAddress("10.0.0.0/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PrefixLen != 24 {
		t.Errorf("expected prefix 24, got %d", a.PrefixLen)
	}
	if a.IsSingleton() {
		t.Error("expected non-singleton /24")
	}
	if a.Hi.String() != "10.0.0.255" {
		t.Errorf("expected broadcast 10.0.0.255, got %s", a.Hi)
	}
}

func TestParseAddressRangeCollapse(t *testing.T) {
	a, err := ParseAddress("10.0.0.5-10.0.0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.IsSingleton() {
		t.Error("expected lo==hi range to collapse to singleton")
	}
}

func TestParseAddressRangeEmpty(t *testing.T) {
	_, err := ParseAddress("10.0.0.5-10.0.0.1")
	if pferrors.GetCode(err) != pferrors.CodeEmptyRange {
		t.Errorf("expected CodeEmptyRange, got %v", pferrors.GetCode(err))
	}
}

func TestParseAddressRangeFamilyMismatch(t *testing.T) {
	_, err := ParseAddress("10.0.0.1-::1")
	if pferrors.GetCode(err) != pferrors.CodeFamilyMismatch {
		t.Errorf("expected CodeFamilyMismatch, got %v", pferrors.GetCode(err))
	}
}

func TestParseAddressV6CIDR(t *testing.T) {
	a, err := ParseAddress("2001:db8::/32")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Family != FamilyV6 {
		t.Errorf("expected FamilyV6, got %v", a.Family)
	}
}

func TestParseAddressV6Range(t *testing.T) {
	a, err := ParseAddress("2001:db8::1-2001:db8::ff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Family != FamilyV6 {
		t.Errorf("expected FamilyV6, got %v", a.Family)
	}
}

func TestParseAddressNegated(t *testing.T) {
	a, err := ParseAddress("!10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Negated {
		t.Error("expected Negated to be true")
	}
	if a.Literal != "!10.0.0.1" {
		t.Errorf("expected literal to retain the '!' prefix, got %q", a.Literal)
	}
}

func TestParseAddressMAC(t *testing.T) {
	a, err := ParseAddress("aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Family != FamilyMAC {
		t.Errorf("expected FamilyMAC, got %v", a.Family)
	}
}

func TestParseAddressMalformed(t *testing.T) {
	_, err := ParseAddress("not-an-address")
	if pferrors.GetCode(err) != pferrors.CodeMalformedAddress {
		t.Errorf("expected CodeMalformedAddress, got %v", pferrors.GetCode(err))
	}
}

func TestParseAddressBadPrefixBounds(t *testing.T) {
	_, err := ParseAddress("10.0.0.0/99")
	if pferrors.GetCode(err) != pferrors.CodeMalformedAddress {
		t.Errorf("expected CodeMalformedAddress for out-of-bounds prefix, got %v", pferrors.GetCode(err))
	}
}

func TestParsePortSingle(t *testing.T) {
	p, err := ParsePort("80")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsSingle() || p.Lo != 80 {
		t.Errorf("expected single port 80, got %+v", p)
	}
}

func TestParsePortNamed(t *testing.T) {
	p, err := ParsePort("https")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lo != 443 {
		t.Errorf("expected https to resolve to 443, got %d", p.Lo)
	}
}

func TestParsePortUnknownService(t *testing.T) {
	_, err := ParsePort("bogus-service")
	if pferrors.GetCode(err) != pferrors.CodeUnknownService {
		t.Errorf("expected CodeUnknownService, got %v", pferrors.GetCode(err))
	}
}

func TestParsePortRange(t *testing.T) {
	p, err := ParsePort("1000:2000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsSingle() || p.Lo != 1000 || p.Hi != 2000 {
		t.Errorf("expected range 1000:2000, got %+v", p)
	}
}

func TestParsePortRangeInvalidOrder(t *testing.T) {
	_, err := ParsePort("2000:1000")
	if pferrors.GetCode(err) != pferrors.CodeEmptyRange {
		t.Errorf("expected CodeEmptyRange, got %v", pferrors.GetCode(err))
	}
}

func TestParsePortList(t *testing.T) {
	ports, err := ParsePortList("22, 80, 443")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ports) != 3 {
		t.Fatalf("expected 3 ports, got %d", len(ports))
	}
}

func TestParseAddressList(t *testing.T) {
	addrs, err := ParseAddressList("10.0.0.1, 10.0.1.0/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(addrs))
	}
}
