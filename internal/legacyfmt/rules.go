// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import (
	"strings"

	"github.com/proxmox/proxmox-firewall/internal/addrport"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/valuegrammar"
)

// BuildRules reads a `[RULES]` section (or one `[GROUP name]` section, which
// uses the identical rule-line grammar) into an ordered []model.Rule. A rule
// line prefixed with "|" is disabled but otherwise parsed normally, matching
// the convention every sample legacy file in the pack uses to comment out one
// rule without deleting it.
func BuildRules(sec Section, macros model.MacroCatalogue) ([]model.Rule, error) {
	rules := make([]model.Rule, 0, len(sec.Lines))
	for _, ln := range sec.Lines {
		rule, err := buildRule(ln.Text, macros)
		if err != nil {
			return nil, pferrors.WithProvenance(err, "", "", ln.Num)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// BuildGroups reads every `[GROUP name]` section in f into a
// model.SecurityGroup, keyed by name.
func BuildGroups(f *File, macros model.MacroCatalogue) (map[string]model.SecurityGroup, error) {
	groups := make(map[string]model.SecurityGroup)
	for _, sec := range f.All(SectionGroup) {
		rules, err := BuildRules(sec, macros)
		if err != nil {
			return nil, err
		}
		groups[sec.Name] = model.SecurityGroup{Name: sec.Name, Rules: rules}
	}
	return groups, nil
}

func buildRule(text string, macros model.MacroCatalogue) (model.Rule, error) {
	enabled := true
	if strings.HasPrefix(text, "|") {
		enabled = false
		text = strings.TrimPrefix(text, "|")
	}

	rl, err := valuegrammar.ParseRuleLine(text)
	if err != nil {
		return model.Rule{}, err
	}

	action, err := resolveAction(rl.Action, macros)
	if err != nil {
		return model.Rule{}, err
	}
	source, err := resolveEndpoint(rl.Source)
	if err != nil {
		return model.Rule{}, err
	}
	dest, err := resolveEndpoint(rl.Dest)
	if err != nil {
		return model.Rule{}, err
	}

	return model.Rule{
		Direction: rl.Direction,
		Action:    action,
		Enabled:   enabled,
		Iface:     rl.Iface,
		Source:    source,
		Dest:      dest,
		Proto:     rl.Proto,
		SPort:     rl.SPort,
		DPort:     rl.DPort,
		ICMPType:  rl.ICMPType,
		Log:       rl.Log,
		HasLog:    rl.HasLog,
	}, nil
}

// resolveAction decides whether a rule line's action token is a terminal
// policy, a fixed macro name, or a security-group reference. Policies and
// macros are both closed, fixed vocabularies (§4.B, §4.D), so both can be
// decided here with no inventory context; anything left over is assumed to
// be a security group name and is validated against the actual group
// registry later, at compile time (UnknownGroup, §4.E).
func resolveAction(token string, macros model.MacroCatalogue) (model.Action, error) {
	if policy, err := valuegrammar.ParsePolicy(token); err == nil {
		return model.Action{Kind: model.ActionPolicy, Policy: policy}, nil
	}
	if _, err := macros.Lookup(token); err == nil {
		return model.Action{Kind: model.ActionMacro, Name: token}, nil
	}
	if err := model.ValidateName(token); err != nil {
		return model.Action{}, err
	}
	return model.Action{Kind: model.ActionGroup, Name: token}, nil
}

// resolveEndpoint decides whether a rule's source/dest token is absent, a
// raw address, an IP-set reference ("+name", the pack's convention for
// distinguishing a set from a single alias), or an alias reference. Like
// resolveAction, the actual set/alias lookup is deferred to compile time
// (UnresolvedSetRef/UnresolvedAlias) since it needs the resolver's inventory.
func resolveEndpoint(token string) (model.Endpoint, error) {
	if token == "" {
		return model.Endpoint{Kind: model.EndpointNone}, nil
	}
	if strings.HasPrefix(token, "+") {
		name := strings.TrimPrefix(token, "+")
		if err := model.ValidateName(name); err != nil {
			return model.Endpoint{}, err
		}
		return model.Endpoint{Kind: model.EndpointSetRef, Ref: name}, nil
	}
	if addr, err := addrport.ParseAddress(token); err == nil {
		return model.Endpoint{Kind: model.EndpointAddress, Address: addr}, nil
	}
	if err := model.ValidateName(token); err != nil {
		return model.Endpoint{}, err
	}
	return model.Endpoint{Kind: model.EndpointAliasRef, Ref: token}, nil
}
