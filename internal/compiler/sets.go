// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compiler

import (
	"github.com/proxmox/proxmox-firewall/internal/addrport"
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
)

// addressElementValue renders one resolved address as the raw value an
// nftjson.ElementItem carries: a bare string for a singleton, a "prefix"
// object for a CIDR, or a "range" object for a dash-range (§4.C).
func addressElementValue(a addrport.Address) any {
	if a.Family == addrport.FamilyMAC {
		return a.MAC.String()
	}
	if a.PrefixLen >= 0 {
		return map[string]any{"prefix": map[string]any{"addr": a.Lo.String(), "len": a.PrefixLen}}
	}
	if a.IsSingleton() {
		return a.Lo.String()
	}
	return map[string]any{"range": []any{a.Lo.String(), a.Hi.String()}}
}

// emitResolvedSet declares and populates the nftables sets a ResolvedIPSet
// splits into, into table, tagging names with tag so same-named sets from
// different guests never collide (§4.C, §9 "IP set family split"). An empty
// family is elided entirely rather than declared with zero elements, since a
// zero-member interval set is never referenced by any rule this compiler
// emits for that family.
func emitResolvedSet(b *nftjson.Builder, family nftjson.Family, table string, tag string, rs model.ResolvedIPSet) {
	if !rs.EmptyV4() {
		name := v4SetName(tag, rs.Name)
		b.AddSet(nftjson.Set{Family: family, Table: table, Name: name, Type: []string{"ipv4_addr"}, Flags: []string{"interval"}, AutoMerge: true})
		if len(rs.V4) > 0 {
			b.AddElement(nftjson.Element{Family: family, Table: table, Name: name, Elem: addressElements(rs.V4)})
		}
		if len(rs.V4NoMatch) > 0 {
			nmName := v4NoMatchName(tag, rs.Name)
			b.AddSet(nftjson.Set{Family: family, Table: table, Name: nmName, Type: []string{"ipv4_addr"}, Flags: []string{"interval"}, AutoMerge: true})
			b.AddElement(nftjson.Element{Family: family, Table: table, Name: nmName, Elem: addressElements(rs.V4NoMatch)})
		}
	}
	if !rs.EmptyV6() {
		name := v6SetName(tag, rs.Name)
		b.AddSet(nftjson.Set{Family: family, Table: table, Name: name, Type: []string{"ipv6_addr"}, Flags: []string{"interval"}, AutoMerge: true})
		if len(rs.V6) > 0 {
			b.AddElement(nftjson.Element{Family: family, Table: table, Name: name, Elem: addressElements(rs.V6)})
		}
		if len(rs.V6NoMatch) > 0 {
			nmName := v6NoMatchName(tag, rs.Name)
			b.AddSet(nftjson.Set{Family: family, Table: table, Name: nmName, Type: []string{"ipv6_addr"}, Flags: []string{"interval"}, AutoMerge: true})
			b.AddElement(nftjson.Element{Family: family, Table: table, Name: nmName, Elem: addressElements(rs.V6NoMatch)})
		}
	}
	if !rs.EmptyMAC() {
		name := macSetName(tag, rs.Name)
		b.AddSet(nftjson.Set{Family: family, Table: table, Name: name, Type: []string{"ether_addr"}})
		b.AddElement(nftjson.Element{Family: family, Table: table, Name: name, Elem: addressElements(rs.MAC)})
	}
}

func addressElements(addrs []addrport.Address) []nftjson.ElementItem {
	out := make([]nftjson.ElementItem, len(addrs))
	for i, a := range addrs {
		out[i] = nftjson.ElementItem{Value: addressElementValue(a)}
	}
	return out
}

// resolveAndEmitSets resolves every set in sets against res and declares it
// into table under tag, in declaration order (set files are already
// sequential; no reordering is required for determinism here since Go slice
// range preserves the caller's order and the caller is responsible for
// handing sets in sorted form when sorting matters, e.g. AllInScope).
func resolveAndEmitSets(b *nftjson.Builder, family nftjson.Family, table string, tag string, res *model.Resolver, sets []model.IPSet) error {
	for _, s := range sets {
		rs, err := s.Resolve(res)
		if err != nil {
			return err
		}
		emitResolvedSet(b, family, table, tag, rs)
	}
	return nil
}
