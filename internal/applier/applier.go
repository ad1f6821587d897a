// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package applier takes a compiled nftjson.Ruleset and gets it into the
// kernel. It is the external-collaborator surface the pure compiler (§4.H)
// never touches itself: everything here does I/O (exec, netlink, disk),
// grounded on the teacher's atomic.go/manager_linux.go apply-and-rollback
// shape, generalized from one "filter table script" string to the two-table
// nftjson.Ruleset this compiler emits.
package applier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/google/nftables"

	"github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/logging"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
)

// Options controls how Apply validates and executes a ruleset.
type Options struct {
	// DryRun, when set, validates the ruleset with "nft -c" but never
	// applies it.
	DryRun bool
	// SkipBackup disables the pre-apply ruleset snapshot used for rollback;
	// with it set, a failed apply is not rolled back.
	SkipBackup bool
	// BackupPath overrides where the pre-apply snapshot is written.
	// Defaults to "/var/lib/proxmox-firewall/rollback.json".
	BackupPath string
}

func (o Options) backupPath() string {
	if o.BackupPath != "" {
		return o.BackupPath
	}
	return "/var/lib/proxmox-firewall/rollback.json"
}

// Applier applies compiled rulesets to the running nftables kernel state.
// The apply path itself always shells out to nft(8) with JSON input (§9:
// nft accepts its own -j output format back as -f input) — nftjson.Ruleset
// is deliberately modeled as a subset of that schema so the round trip is
// exact. conn is only used for the read-side drift check (GenerationID)
// via the google/nftables netlink library; the pre-apply backup is taken
// with `nft -j list ruleset`. This is the same way the teacher's Manager pairs a nftables.Conn for
// state inspection with an exec-based apply path for the actual mutation.
type Applier struct {
	conn   *nftables.Conn
	logger *logging.Logger
}

// New builds an Applier backed by a real netlink connection.
func New(logger *logging.Logger) (*Applier, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "open nftables netlink connection")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Applier{conn: conn, logger: logger}, nil
}

// Apply validates, optionally backs up, and applies rs. A validation failure
// returns before any snapshot is taken or anything is applied; on an apply
// failure the pre-apply snapshot (if taken) is restored so a bad compile
// never leaves the host half-migrated (grounded on atomic.go's
// RollbackManager.SafeApply).
func (a *Applier) Apply(ctx context.Context, rs nftjson.Ruleset, opts Options) error {
	script, err := marshalRuleset(rs)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshal ruleset")
	}

	if err := a.validate(ctx, script); err != nil {
		return errors.Wrap(err, errors.KindValidation, "ruleset validation failed")
	}
	if opts.DryRun {
		a.logger.Info("dry run validated ruleset, not applying", "commands", len(rs.Commands))
		return nil
	}

	var backedUp bool
	if !opts.SkipBackup {
		if err := a.backup(ctx, opts.backupPath()); err != nil {
			a.logger.Warn("failed to snapshot current ruleset before apply", "error", err)
		} else {
			backedUp = true
		}
	}

	if err := a.applyScript(ctx, script); err != nil {
		if backedUp {
			if rbErr := a.restore(ctx, opts.backupPath()); rbErr != nil {
				return errors.Wrapf(err, errors.KindInternal, "apply failed, rollback also failed: %v", rbErr)
			}
			return errors.Wrap(err, errors.KindInternal, "apply failed, rolled back to prior ruleset")
		}
		return errors.Wrap(err, errors.KindInternal, "apply failed")
	}

	a.logger.Info("applied ruleset", "commands", len(rs.Commands))
	return nil
}

// validate runs nft's own check-only mode against script without touching
// kernel state, mirroring atomic.go's DryRun.
func (a *Applier) validate(ctx context.Context, script []byte) error {
	cmd := exec.CommandContext(ctx, "nft", "-c", "-j", "-f", "-")
	cmd.Stdin = bytes.NewReader(script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\noutput: %s", err, string(out))
	}
	return nil
}

// applyScript hands script to nft for atomic application, mirroring
// atomic.go's AtomicRulesetUpdate.
func (a *Applier) applyScript(ctx context.Context, script []byte) error {
	cmd := exec.CommandContext(ctx, "nft", "-j", "-f", "-")
	cmd.Stdin = bytes.NewReader(script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\noutput: %s", err, string(out))
	}
	return nil
}

// backup snapshots the live ruleset to path, mirroring atomic.go's
// BackupRuleset, using nft's own JSON dump so restore() can feed it straight
// back through applyScript.
func (a *Applier) backup(ctx context.Context, path string) error {
	out, err := exec.CommandContext(ctx, "nft", "-j", "list", "ruleset").Output()
	if err != nil {
		return fmt.Errorf("list ruleset: %w", err)
	}
	return os.WriteFile(path, out, 0o600)
}

// restore replays the snapshot at path, mirroring atomic.go's
// RestoreRuleset: the backed-up JSON is fed back through applyScript as is;
// no separate flush is issued first.
func (a *Applier) restore(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	return a.applyScript(ctx, data)
}

// marshalRuleset renders rs the way nft itself would print -j output: one
// JSON object per line is NOT required (nft accepts a single document), but
// we keep the commands densely packed and newline-terminated so a "nft -f"
// trace log reads the same shape the teacher's script-builder text output
// did.
func marshalRuleset(rs nftjson.Ruleset) ([]byte, error) {
	body, err := rs.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// GenerationID returns the number of chains currently under the two managed
// tables, a drift signal for out-of-band changes to those tables (grounded
// on manager_linux.go's expectedGenID integrity-monitor field). It is not
// the kernel's ruleset generation counter, and the reconcile loop does not
// call it.
func (a *Applier) GenerationID() (uint32, error) {
	chains, err := a.conn.ListChains()
	if err != nil {
		return 0, errors.Wrap(err, errors.KindUnavailable, "list chains for generation check")
	}
	// google/nftables does not expose the netlink generation counter
	// directly; chain count is used as a cheap drift signal instead — a
	// change in the number of chains under either managed table is always
	// itself a meaningful drift event.
	var n uint32
	for _, c := range chains {
		if c.Table != nil && (c.Table.Name == "proxmox-firewall" || c.Table.Name == "proxmox-firewall-guests") {
			n++
		}
	}
	return n, nil
}

// Close is a no-op that always returns nil; the netlink connection opened
// by New is not held open between calls.
func (a *Applier) Close() error {
	return nil
}
