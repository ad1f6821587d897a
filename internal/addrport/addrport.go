// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package addrport parses and classifies the address and port literals the
// legacy firewall config grammar accepts (§4.A): single IPv4/IPv6
// addresses, CIDRs, dash-separated ranges, 48-bit MACs, single ports, port
// ranges, and named services.
package addrport

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/netutil"
)

// Family identifies which nftables address family an Address belongs to.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
	FamilyMAC
)

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ip"
	case FamilyV6:
		return "ip6"
	case FamilyMAC:
		return "mac"
	default:
		return "unknown"
	}
}

// Address is a single address, CIDR, or range, carrying enough of the
// original text to be displayed while membership is evaluated against the
// masked bounds.
type Address struct {
	Family Family

	// Lo and Hi are the inclusive bounds of the address's coverage. For a
	// single address Lo == Hi. For a CIDR, Lo/Hi are the masked network and
	// broadcast bounds (host bits outside the prefix are zeroed here, but
	// the original text is preserved in Literal for display).
	Lo net.IP
	Hi net.IP

	// PrefixLen is set (>=0) when the address was written as a CIDR.
	// -1 means the address was not written as a CIDR.
	PrefixLen int

	// MAC holds the hardware address when Family == FamilyMAC.
	MAC net.HardwareAddr

	// Literal is the original, unmasked source text.
	Literal string

	// Negated is true when the source text was prefixed with "!".
	Negated bool
}

// ParseAddress parses one address/CIDR/range/MAC token, per §4.A. A leading
// "!" marks the literal as negated (destined for a "*-nomatch" set) and is
// stripped before the rest is parsed.
func ParseAddress(token string) (Address, error) {
	literal := token
	negated := false
	if strings.HasPrefix(token, "!") {
		negated = true
		token = strings.TrimPrefix(token, "!")
	}

	if mac, err := netutil.ParseMAC(token); err == nil {
		return Address{
			Family:    FamilyMAC,
			MAC:       net.HardwareAddr(mac),
			PrefixLen: -1,
			Literal:   literal,
			Negated:   negated,
		}, nil
	}

	if lo, hi, ok := strings.Cut(token, "-"); ok {
		return parseRange(literal, lo, hi, negated)
	}

	if ip, ipnet, err := net.ParseCIDR(token); err == nil {
		return parseCIDR(literal, ip, ipnet, negated)
	}

	ip := net.ParseIP(token)
	if ip == nil {
		return Address{}, pferrors.MalformedAddress(literal)
	}
	fam, err := familyOf(ip)
	if err != nil {
		return Address{}, err
	}
	return Address{
		Family:    fam,
		Lo:        ip,
		Hi:        ip,
		PrefixLen: -1,
		Literal:   literal,
		Negated:   negated,
	}, nil
}

func familyOf(ip net.IP) (Family, error) {
	if ip.To4() != nil {
		return FamilyV4, nil
	}
	if ip.To16() != nil {
		return FamilyV6, nil
	}
	return 0, pferrors.MalformedAddress(ip.String())
}

func parseCIDR(literal string, ip net.IP, ipnet *net.IPNet, negated bool) (Address, error) {
	fam, err := familyOf(ip)
	if err != nil {
		return Address{}, err
	}
	ones, bits := ipnet.Mask.Size()
	maxBits := 32
	if fam == FamilyV6 {
		maxBits = 128
	}
	if bits != maxBits || ones < 0 || ones > maxBits {
		return Address{}, pferrors.MalformedAddress(literal)
	}

	lo := ipnet.IP
	hi := lastAddr(ipnet)
	return Address{
		Family:    fam,
		Lo:        lo,
		Hi:        hi,
		PrefixLen: ones,
		Literal:   literal,
		Negated:   negated,
	}, nil
}

// lastAddr computes the broadcast/highest address of a CIDR network.
func lastAddr(n *net.IPNet) net.IP {
	ip := n.IP
	mask := n.Mask
	out := make(net.IP, len(ip))
	for i := range ip {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}

func parseRange(literal, loStr, hiStr string, negated bool) (Address, error) {
	lo := net.ParseIP(loStr)
	hi := net.ParseIP(hiStr)
	if lo == nil || hi == nil {
		return Address{}, pferrors.MalformedAddress(literal)
	}
	loFam, err := familyOf(lo)
	if err != nil {
		return Address{}, err
	}
	hiFam, err := familyOf(hi)
	if err != nil {
		return Address{}, err
	}
	if loFam != hiFam {
		return Address{}, pferrors.FamilyMismatch(fmt.Sprintf("range endpoints %s and %s are different families", loStr, hiStr))
	}
	if compareIP(lo, hi) > 0 {
		return Address{}, pferrors.EmptyRange(loStr, hiStr)
	}
	return Address{
		Family:    loFam,
		Lo:        lo,
		Hi:        hi,
		PrefixLen: -1,
		Literal:   literal,
		Negated:   negated,
	}, nil
}

// compareIP compares two net.IP values of the same family byte-wise.
func compareIP(a, b net.IP) int {
	a4, b4 := a.To4(), b.To4()
	if a4 != nil && b4 != nil {
		a, b = a4, b4
	} else {
		a, b = a.To16(), b.To16()
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsSingleton reports whether the address covers exactly one host, i.e. a
// bare address or a range/CIDR that collapsed to lo==hi.
func (a Address) IsSingleton() bool {
	return a.Family != FamilyMAC && compareIP(a.Lo, a.Hi) == 0
}

// Port represents a single port or an inclusive lo-hi range, per §4.A.
type Port struct {
	Lo uint16
	Hi uint16
}

// IsSingle reports whether the port covers exactly one value.
func (p Port) IsSingle() bool { return p.Lo == p.Hi }

// namedPorts is the fixed service-name table §4.A refers to without
// enumerating exhaustively ("…").
var namedPorts = map[string]uint16{
	"ssh":        22,
	"telnet":     23,
	"smtp":       25,
	"dns":        53,
	"domain":     53,
	"http":       80,
	"pop3":       110,
	"ntp":        123,
	"imap":       143,
	"snmp":       161,
	"ldap":       389,
	"https":      443,
	"smtps":      465,
	"imaps":      993,
	"pop3s":      995,
	"rdp":        3389,
	"spiceproxy": 3128,
}

// ParsePort parses a single port token: a bare integer, a named service, or
// a "lo:hi" range with lo<hi.
func ParsePort(token string) (Port, error) {
	if lo, hi, ok := strings.Cut(token, ":"); ok {
		loPort, err := parsePortValue(lo)
		if err != nil {
			return Port{}, err
		}
		hiPort, err := parsePortValue(hi)
		if err != nil {
			return Port{}, err
		}
		if loPort >= hiPort {
			return Port{}, pferrors.EmptyRange(lo, hi)
		}
		return Port{Lo: loPort, Hi: hiPort}, nil
	}

	v, err := parsePortValue(token)
	if err != nil {
		return Port{}, err
	}
	return Port{Lo: v, Hi: v}, nil
}

func parsePortValue(token string) (uint16, error) {
	if n, ok := namedPorts[strings.ToLower(token)]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, pferrors.UnknownService(token)
	}
	if n < 0 || n > 65535 {
		return 0, pferrors.MalformedAddress(token)
	}
	return uint16(n), nil
}

// ParsePortList parses a comma-separated list of port tokens.
func ParsePortList(csv string) ([]Port, error) {
	parts := strings.Split(csv, ",")
	ports := make([]Port, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		port, err := ParsePort(p)
		if err != nil {
			return nil, err
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// ParseAddressList parses a comma-separated list of address tokens.
func ParseAddressList(csv string) ([]Address, error) {
	parts := strings.Split(csv, ",")
	addrs := make([]Address, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		addr, err := ParseAddress(p)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
