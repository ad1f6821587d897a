// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package model

import pferrors "github.com/proxmox/proxmox-firewall/internal/errors"

// MacroFamily restricts a macro fragment to one address family, or "any" if
// the fragment applies regardless of family.
type MacroFamily int

const (
	MacroFamilyAny MacroFamily = iota
	MacroFamilyV4
	MacroFamilyV6
)

// MacroFragment is one protocol-match fragment a macro expands to (§3, §4.D).
// Exactly one of Proto's associated fields is meaningful per fragment shape:
// a plain proto match, a port match, or an ICMP/ICMPv6 type match.
type MacroFragment struct {
	Family    MacroFamily
	Proto     string // "tcp", "udp", "icmp", "icmpv6", ""
	SPort     string // named or numeric; "" if not matched
	DPort     string
	ICMPType  string // ICMPv4 type name, e.g. "echo-request"
	ICMP6Type string // ICMPv6 type name, e.g. "echo-request"
}

// Macro is a named, fixed catalogue entry expanding to one or more
// MacroFragments (§4.D). Expansion produces one rule per fragment.
type Macro struct {
	Name      string
	Fragments []MacroFragment
}

// MacroCatalogue is the fixed, built-in macro table. It's a value, not a
// pointer receiver API, since the catalogue never changes at runtime.
type MacroCatalogue map[string]Macro

// DefaultMacroCatalogue returns the fixed macro catalogue §4.D's table
// enumerates (non-exhaustively in the prose; this is the complete set this
// compiler ships with).
func DefaultMacroCatalogue() MacroCatalogue {
	return MacroCatalogue{
		"DNS": {
			Name: "DNS",
			Fragments: []MacroFragment{
				{Family: MacroFamilyAny, Proto: "udp", DPort: "53"},
				{Family: MacroFamilyAny, Proto: "tcp", DPort: "53"},
			},
		},
		"DHCPfwd": {
			Name: "DHCPfwd",
			Fragments: []MacroFragment{
				{Family: MacroFamilyV4, Proto: "udp", SPort: "68", DPort: "67"},
			},
		},
		"DHCPv6": {
			Name: "DHCPv6",
			Fragments: []MacroFragment{
				{Family: MacroFamilyV6, Proto: "udp", SPort: "547", DPort: "546"},
			},
		},
		"Ping": {
			Name: "Ping",
			Fragments: []MacroFragment{
				{Family: MacroFamilyV4, Proto: "icmp", ICMPType: "echo-request"},
				{Family: MacroFamilyV6, Proto: "icmpv6", ICMP6Type: "echo-request"},
			},
		},
		"SPICEproxy": {
			Name: "SPICEproxy",
			Fragments: []MacroFragment{
				{Family: MacroFamilyAny, Proto: "tcp", DPort: "3128"},
			},
		},
		"SSH": {
			Name: "SSH",
			Fragments: []MacroFragment{
				{Family: MacroFamilyAny, Proto: "tcp", DPort: "22"},
			},
		},
		"HTTP": {
			Name: "HTTP",
			Fragments: []MacroFragment{
				{Family: MacroFamilyAny, Proto: "tcp", DPort: "80"},
			},
		},
		"HTTPS": {
			Name: "HTTPS",
			Fragments: []MacroFragment{
				{Family: MacroFamilyAny, Proto: "tcp", DPort: "443"},
			},
		},
		"NTP": {
			Name: "NTP",
			Fragments: []MacroFragment{
				{Family: MacroFamilyAny, Proto: "udp", DPort: "123"},
			},
		},
		"NDP": {
			Name: "NDP",
			Fragments: []MacroFragment{
				{Family: MacroFamilyV6, Proto: "icmpv6", ICMP6Type: "nd-neighbor-solicit"},
				{Family: MacroFamilyV6, Proto: "icmpv6", ICMP6Type: "nd-neighbor-advert"},
				{Family: MacroFamilyV6, Proto: "icmpv6", ICMP6Type: "nd-router-solicit"},
				{Family: MacroFamilyV6, Proto: "icmpv6", ICMP6Type: "nd-router-advert"},
			},
		},
	}
}

// Lookup finds a macro by name, failing with UnknownMacro if it's not in
// the catalogue.
func (c MacroCatalogue) Lookup(name string) (Macro, error) {
	m, ok := c[name]
	if !ok {
		return Macro{}, pferrors.UnknownMacro(name)
	}
	return m, nil
}

// Expand returns the fragments of m compatible with restrictFamily
// (MacroFamilyAny disables the restriction — every fragment passes). Fails
// with MacroFamilyEmpty if the restriction eliminates every fragment.
func (m Macro) Expand(restrictFamily MacroFamily) ([]MacroFragment, error) {
	if restrictFamily == MacroFamilyAny {
		return m.Fragments, nil
	}

	var out []MacroFragment
	for _, f := range m.Fragments {
		if f.Family == MacroFamilyAny || f.Family == restrictFamily {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, pferrors.MacroFamilyEmpty(m.Name)
	}
	return out, nil
}
