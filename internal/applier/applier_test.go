// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package applier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxmox/proxmox-firewall/internal/nftjson"
)

// The rest of this package shells out to nft(8) and netlink, which a unit
// test cannot do without a real kernel — the teacher's own atomic.go and
// manager_linux.go carry no unit tests for the same reason. marshalRuleset
// is the one pure helper worth covering directly.

func TestMarshalRuleset_ProducesNewlineTerminatedJSON(t *testing.T) {
	rs := nftjson.FlushDeleteAll("proxmox-firewall", "proxmox-firewall-guests")

	out, err := marshalRuleset(rs)
	require.NoError(t, err)

	require.NotEmpty(t, out)
	assert.Equal(t, byte('\n'), out[len(out)-1])
	assert.Contains(t, string(out), `"nftables"`)
}

func TestOptions_BackupPathDefaultsWhenUnset(t *testing.T) {
	var o Options
	assert.Equal(t, "/var/lib/proxmox-firewall/rollback.json", o.backupPath())

	o.BackupPath = "/tmp/custom.json"
	assert.Equal(t, "/tmp/custom.json", o.backupPath())
}
