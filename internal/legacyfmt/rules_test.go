// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/valuegrammar"
)

func TestBuildRules_PolicyMacroAndGroupActionsAreDistinguished(t *testing.T) {
	doc := "[RULES]\nIN ACCEPT -source 10.0.0.1\nOUT DNS\nIN webservers -i net0\n|IN DROP -p tcp -dport 23\n"
	f, err := Parse(strings.NewReader(doc), "cluster.fw")
	require.NoError(t, err)
	sec, ok := f.FirstRules()
	require.True(t, ok)

	rules, err := BuildRules(sec, model.DefaultMacroCatalogue())
	require.NoError(t, err)
	require.Len(t, rules, 4)

	assert.Equal(t, model.ActionPolicy, rules[0].Action.Kind)
	assert.Equal(t, valuegrammar.PolicyAccept, rules[0].Action.Policy)
	assert.True(t, rules[0].Enabled)
	assert.Equal(t, model.EndpointAddress, rules[0].Source.Kind)

	assert.Equal(t, model.ActionMacro, rules[1].Action.Kind)
	assert.Equal(t, "DNS", rules[1].Action.Name)

	assert.Equal(t, model.ActionGroup, rules[2].Action.Kind)
	assert.Equal(t, "webservers", rules[2].Action.Name)
	assert.Equal(t, "net0", rules[2].Iface)

	assert.False(t, rules[3].Enabled)
	assert.Equal(t, model.ActionPolicy, rules[3].Action.Kind)
}

func TestBuildRules_SetRefAndAliasRefEndpoints(t *testing.T) {
	doc := "[RULES]\nIN ACCEPT -source +trusted -dest gw\n"
	f, err := Parse(strings.NewReader(doc), "cluster.fw")
	require.NoError(t, err)
	sec, _ := f.FirstRules()

	rules, err := BuildRules(sec, model.DefaultMacroCatalogue())
	require.NoError(t, err)
	require.Len(t, rules, 1)

	assert.Equal(t, model.EndpointSetRef, rules[0].Source.Kind)
	assert.Equal(t, "trusted", rules[0].Source.Ref)
	assert.Equal(t, model.EndpointAliasRef, rules[0].Dest.Kind)
	assert.Equal(t, "gw", rules[0].Dest.Ref)
}

func TestBuildGroups(t *testing.T) {
	doc := "[GROUP webservers]\nIN ACCEPT -p tcp -dport 80\nIN ACCEPT -p tcp -dport 443\n"
	f, err := Parse(strings.NewReader(doc), "cluster.fw")
	require.NoError(t, err)

	groups, err := BuildGroups(f, model.DefaultMacroCatalogue())
	require.NoError(t, err)
	require.Contains(t, groups, "webservers")
	assert.Len(t, groups["webservers"].Rules, 2)
}

func TestBuildRules_BadDirectionFails(t *testing.T) {
	doc := "[RULES]\nSIDEWAYS ACCEPT\n"
	f, err := Parse(strings.NewReader(doc), "cluster.fw")
	require.NoError(t, err)
	sec, _ := f.FirstRules()

	_, err = BuildRules(sec, model.DefaultMacroCatalogue())
	require.Error(t, err)
}
