// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package svcconfig

import (
	"os"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

// RenderDefault renders DefaultConfig as an HCL document, building attributes
// from cty values the way the teacher's internal/config.ConfigFile builds
// them for round-trip editing, rather than templating text by hand.
func RenderDefault(inventoryDir string) []byte {
	def := DefaultConfig()

	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("schema_version", cty.StringVal(def.SchemaVersion))
	body.SetAttributeValue("reconcile_interval_seconds", cty.NumberIntVal(int64(def.ReconcileIntervalSeconds)))
	body.SetAttributeValue("inventory_dir", cty.StringVal(inventoryDir))
	body.SetAttributeValue("disable_sentinel_path", cty.StringVal(def.DisableSentinelPath))
	body.AppendNewline()

	logBlock := body.AppendNewBlock("logging", nil).Body()
	logBlock.SetAttributeValue("level", cty.StringVal(def.Logging.Level))
	logBlock.SetAttributeValue("format", cty.StringVal(def.Logging.Format))
	body.AppendNewline()

	applierBlock := body.AppendNewBlock("applier", nil).Body()
	applierBlock.SetAttributeValue("dry_run", cty.BoolVal(def.Applier.DryRun))

	return f.Bytes()
}

// WriteDefaultFile writes a starter settings document to path, refusing to
// clobber a file that already exists there.
func WriteDefaultFile(path, inventoryDir string) error {
	if _, err := os.Stat(path); err == nil {
		return pferrors.Errorf(pferrors.KindValidation, "refusing to overwrite existing file %q", path)
	} else if !os.IsNotExist(err) {
		return pferrors.Wrapf(err, pferrors.KindInternal, "stat %q", path)
	}
	return os.WriteFile(path, RenderDefault(inventoryDir), 0o644)
}
