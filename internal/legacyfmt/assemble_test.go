// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxmox/proxmox-firewall/internal/model"
)

func TestBuildHostConfig_FullFile(t *testing.T) {
	doc := `
[OPTIONS]
nosmurfs: 1

[ALIASES]
gw: 10.0.0.1

[IPSET trusted]
10.0.0.0/24

[RULES]
IN ACCEPT -source gw
`
	f, err := Parse(strings.NewReader(doc), "host.fw")
	require.NoError(t, err)

	cfg, err := BuildHostConfig(f)
	require.NoError(t, err)

	assert.True(t, cfg.Options.NoSmurfs)
	require.NotNil(t, cfg.Aliases)
	_, ok := cfg.Aliases.Lookup("gw")
	assert.True(t, ok)
	require.Len(t, cfg.Sets, 1)
	assert.Equal(t, "trusted", cfg.Sets[0].Name)
	require.Len(t, cfg.Rules.Rules, 1)
	assert.Equal(t, model.ScopeDatacenter, cfg.Rules.Scope)
}

func TestBuildHostConfig_MissingSectionsProduceEmptyZeroValues(t *testing.T) {
	f, err := Parse(strings.NewReader(""), "host.fw")
	require.NoError(t, err)

	cfg, err := BuildHostConfig(f)
	require.NoError(t, err)
	assert.NotNil(t, cfg.Aliases)
	assert.Empty(t, cfg.Sets)
	assert.Empty(t, cfg.Rules.Rules)
}

func TestBuildClusterConfig_MirrorsHostConfigShape(t *testing.T) {
	doc := "[OPTIONS]\ntcpflags: 1\n"
	f, err := Parse(strings.NewReader(doc), "cluster.fw")
	require.NoError(t, err)

	cfg, err := BuildClusterConfig(f)
	require.NoError(t, err)
	assert.True(t, cfg.Options.TCPFlags)
}

func TestBuildGuestOverlay(t *testing.T) {
	doc := `
[OPTIONS]
enable: 1
ipfilter: 1

[IPSET ipfilter-net0]
192.168.1.10

[RULES]
IN ACCEPT -p tcp -dport 22
`
	f, err := Parse(strings.NewReader(doc), "100.fw")
	require.NoError(t, err)

	overlay, err := BuildGuestOverlay(f)
	require.NoError(t, err)
	assert.True(t, overlay.Options.Enable)
	assert.True(t, overlay.Options.IPFilter)
	require.Len(t, overlay.Sets, 1)
	assert.Equal(t, "ipfilter-net0", overlay.Sets[0].Name)
	require.Len(t, overlay.Rules.Rules, 1)
}

func TestBuildVNetOverlay(t *testing.T) {
	doc := "[RULES]\nFORWARD ACCEPT -p tcp -dport 80\n"
	f, err := Parse(strings.NewReader(doc), "vnet1.fw")
	require.NoError(t, err)

	overlay, err := BuildVNetOverlay(f)
	require.NoError(t, err)
	require.Len(t, overlay.Rules.Rules, 1)
	assert.Empty(t, overlay.Sets)
}
