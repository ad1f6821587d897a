// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package svcconfig decodes the reconcile daemon's own settings file. This is
// deliberately a different format from the per-host/per-guest legacy
// key/value firewall files the compiler reads as inventory: those remain
// untokenized inputs (see internal/legacyfmt), while the daemon's own knobs
// (how often to reconcile, where to find inventory, how to log) are a small
// HCL document decoded the way the teacher decodes its router config.
package svcconfig

import (
	"github.com/hashicorp/hcl/v2/hclsimple"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

// CurrentSchemaVersion is the schema version this package decodes.
const CurrentSchemaVersion = "1.0"

// Config is the top-level structure for the reconcile daemon's own settings.
type Config struct {
	// SchemaVersion pins the settings file format.
	// @default: "1.0"
	SchemaVersion string `hcl:"schema_version,optional"`

	// ReconcileIntervalSeconds is how often the daemon re-reads inventory and
	// recompiles the ruleset.
	// @default: 30
	ReconcileIntervalSeconds int `hcl:"reconcile_interval_seconds,optional"`

	// InventoryDir is the directory the daemon scans for per-host, per-guest,
	// and per-VNet legacy config files (§6.4).
	InventoryDir string `hcl:"inventory_dir"`

	// DisableSentinelPath, if the named file exists, makes every reconcile
	// cycle compile a ruleset that only flushes and deletes both managed
	// tables, until the file is removed (§5's pause mechanism).
	// @default: "/etc/pve/firewall/.disabled"
	DisableSentinelPath string `hcl:"disable_sentinel_path,optional"`

	// FixturePath points at a YAML inventory snapshot (internal/inventory/
	// fixture) supplying the guest/VNet/IPAM facts a real deployment would
	// get from the Proxmox API, the SDN config store, and the cluster's IPAM
	// plugin (§6.1) — none of which this repo ships a client for. Left
	// empty, the daemon reconciles host/cluster rules only, with no guests
	// or VNets.
	FixturePath string `hcl:"fixture_path,optional"`

	// Logging controls the daemon's own logger.
	Logging *LoggingConfig `hcl:"logging,block"`

	// Applier selects how a compiled ruleset is applied once produced.
	Applier *ApplierConfig `hcl:"applier,block"`
}

// LoggingConfig mirrors internal/logging.Config in HCL-decodable form.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// @default: "info"
	Level string `hcl:"level,optional"`
	// Format is "text" or "json".
	// @default: "text"
	Format string `hcl:"format,optional"`
}

// ApplierConfig controls internal/applier's behavior. Application itself
// always goes through `nft -j -f -` (internal/applier.Applier.Apply);
// github.com/google/nftables is only used read-side, for drift detection
// between reconcile cycles (Applier.GenerationID).
type ApplierConfig struct {
	// DryRun, when true, validates the ruleset (`nft -c -j -f -`) without
	// applying it.
	// @default: false
	DryRun bool `hcl:"dry_run,optional"`
	// BackupPath overrides where the pre-apply rollback snapshot is written.
	// @default: "/var/lib/proxmox-firewall/rollback.json"
	BackupPath string `hcl:"backup_path,optional"`
}

// DefaultConfig returns the settings used when no fields are overridden by
// the decoded file.
func DefaultConfig() Config {
	return Config{
		SchemaVersion:            CurrentSchemaVersion,
		ReconcileIntervalSeconds: 30,
		DisableSentinelPath:      "/etc/pve/firewall/.disabled",
		Logging:                  &LoggingConfig{Level: "info", Format: "text"},
		Applier:                  &ApplierConfig{},
	}
}

// applyDefaults fills zero-valued fields of cfg with DefaultConfig's values,
// without disturbing fields the file did set.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = def.SchemaVersion
	}
	if cfg.ReconcileIntervalSeconds == 0 {
		cfg.ReconcileIntervalSeconds = def.ReconcileIntervalSeconds
	}
	if cfg.DisableSentinelPath == "" {
		cfg.DisableSentinelPath = def.DisableSentinelPath
	}
	if cfg.Logging == nil {
		cfg.Logging = def.Logging
	} else {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = def.Logging.Level
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = def.Logging.Format
		}
	}
	if cfg.Applier == nil {
		cfg.Applier = def.Applier
	} else if cfg.Applier.BackupPath == "" {
		cfg.Applier.BackupPath = def.Applier.BackupPath
	}
}

// LoadFile decodes an HCL settings file at path.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, pferrors.Wrapf(err, pferrors.KindValidation, "decoding svcconfig file %q", path)
	}
	applyDefaults(&cfg)
	if cfg.InventoryDir == "" {
		return nil, pferrors.MissingRequired("inventory_dir")
	}
	return &cfg, nil
}

// LoadBytes decodes an in-memory HCL settings document, filename is used
// only for diagnostic messages.
func LoadBytes(filename string, data []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, pferrors.Wrapf(err, pferrors.KindValidation, "decoding svcconfig bytes %q", filename)
	}
	applyDefaults(&cfg)
	if cfg.InventoryDir == "" {
		return nil, pferrors.MissingRequired("inventory_dir")
	}
	return &cfg, nil
}
