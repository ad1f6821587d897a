// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import (
	"strings"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/model"
)

// BuildIPSet reads one `[IPSET name]` section into a model.IPSet scoped to
// scope. Each line is a raw address/CIDR/range/MAC, or an alias name,
// optionally prefixed with "!" for a nomatch entry (§3).
func BuildIPSet(sec Section, scope model.Scope) (model.IPSet, error) {
	set := model.IPSet{Scope: scope, Name: sec.Name}
	for _, ln := range sec.Lines {
		entry, err := parseIPSetEntry(ln.Text)
		if err != nil {
			return model.IPSet{}, pferrors.WithProvenance(err, "", string(scope), ln.Num)
		}
		set.Entries = append(set.Entries, entry)
	}
	return set, nil
}

// BuildIPSets reads every `[IPSET name]` section in f into model.IPSets
// scoped to scope, in declaration order.
func BuildIPSets(f *File, scope model.Scope) ([]model.IPSet, error) {
	sections := f.All(SectionIPSet)
	sets := make([]model.IPSet, 0, len(sections))
	for _, sec := range sections {
		set, err := BuildIPSet(sec, scope)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func parseIPSetEntry(text string) (model.IPSetEntry, error) {
	negated := false
	if strings.HasPrefix(text, "!") {
		negated = true
		text = strings.TrimPrefix(text, "!")
	}
	text = strings.TrimSpace(text)

	if addr, err := addrport.ParseAddress(text); err == nil {
		return model.IPSetEntry{Kind: model.IPSetEntryAddress, Address: addr, Negated: negated}, nil
	}
	if err := model.ValidateName(text); err != nil {
		return model.IPSetEntry{}, pferrors.MalformedAddress(text)
	}
	return model.IPSetEntry{Kind: model.IPSetEntryAliasRef, AliasRef: text, Negated: negated}, nil
}
