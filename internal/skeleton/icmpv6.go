// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package skeleton

import (
	"github.com/mdlayher/ndp"
	"golang.org/x/net/ipv6"
)

// VitalICMPv6Type is one RFC 4890 neighbor-discovery message that must be
// allowed above any drop policy (§4.H step 9, §8 invariant 5).
type VitalICMPv6Type struct {
	// NFTName is the name nft's icmpv6 type matcher uses.
	NFTName string
	// Code is the message's own wire type number, taken from the
	// neighbor-discovery message's Type() method rather than hardcoded.
	Code ipv6.ICMPType
}

// VitalICMPv6Types returns the five RFC 4890 neighbor-discovery types the
// vital-ICMP preamble allows (§4.H step 9): router/neighbor solicitation
// and advertisement, and redirect. Each Code comes from mdlayher/ndp's own
// message types rather than a hand-copied constant.
// TestVitalICMPv6TypesMatchNDP checks the count and the nft names; it does
// not check the Code values.
func VitalICMPv6Types() []VitalICMPv6Type {
	return []VitalICMPv6Type{
		{NFTName: "nd-router-solicit", Code: (&ndp.RouterSolicitation{}).Type()},
		{NFTName: "nd-neighbor-solicit", Code: (&ndp.NeighborSolicitation{}).Type()},
		{NFTName: "nd-router-advert", Code: (&ndp.RouterAdvertisement{}).Type()},
		{NFTName: "nd-neighbor-advert", Code: (&ndp.NeighborAdvertisement{}).Type()},
		{NFTName: "nd-redirect", Code: (&ndp.Redirect{}).Type()},
	}
}
