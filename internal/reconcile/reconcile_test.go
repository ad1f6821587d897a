// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxmox/proxmox-firewall/internal/inventory"
	"github.com/proxmox/proxmox-firewall/internal/inventory/fixture"
)

const testFixtureYAML = `
guests:
  - vmid: 100
    kind: qemu
    nics:
      - name: net0
        index: 0
        iface_name: tap100i0
        mac: "aa:bb:cc:dd:ee:01"
        bridge: vmbr0
        firewall_enabled: true
`

const testHostFW = `
[OPTIONS]
protection_synflood: 1

[RULES]
IN ACCEPT -p tcp -dport 22
`

const testGuestFW = `
[OPTIONS]
enable: 1
policy_in: DROP

[RULES]
IN ACCEPT -p tcp -dport 80
`

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "host.fw"), []byte(testHostFW), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "guests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guests", "100.fw"), []byte(testGuestFW), 0o644))
	return dir
}

func TestLoadInventory_MergesOverlaysOntoFixtureProviders(t *testing.T) {
	dir := writeTree(t)
	snap, err := fixture.Load(strings.NewReader(testFixtureYAML))
	require.NoError(t, err)

	inv, err := LoadInventory(context.Background(), dir, inventory.Providers{Guests: snap, VNets: snap, IPAM: snap})
	require.NoError(t, err)

	require.Len(t, inv.Guests, 1)
	assert.Equal(t, 100, inv.Guests[0].VMID)
	assert.True(t, inv.Guests[0].Options.Enable)
	require.Len(t, inv.Guests[0].Rules.Rules, 1)
	assert.True(t, inv.Host.Options.ProtectionSynflood)
}

func TestLoop_RunOnceCompilesWithoutApplier(t *testing.T) {
	dir := writeTree(t)
	snap, err := fixture.Load(strings.NewReader(testFixtureYAML))
	require.NoError(t, err)

	loop := New(Config{InventoryDir: dir}, inventory.Providers{Guests: snap, VNets: snap, IPAM: snap}, nil, nil, nil)
	res, err := loop.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Ruleset.Commands)
	assert.NotEmpty(t, res.CycleID)
}

func TestLoop_RunOnceHonorsDisableSentinel(t *testing.T) {
	dir := writeTree(t)
	sentinel := filepath.Join(dir, "disabled")
	require.NoError(t, os.WriteFile(sentinel, []byte(""), 0o644))

	snap, err := fixture.Load(strings.NewReader(testFixtureYAML))
	require.NoError(t, err)

	loop := New(Config{InventoryDir: dir, DisableSentinelPath: sentinel}, inventory.Providers{Guests: snap, VNets: snap, IPAM: snap}, nil, nil, nil)
	res, err := loop.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Ruleset.Commands, 4)
}
