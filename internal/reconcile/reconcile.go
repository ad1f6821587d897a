// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package reconcile is the thin surrounding service spec.md §1 calls out of
// scope for the compiler core itself: a loop that periodically rereads
// on-disk config plus inventory, recompiles, and applies. It owns every
// piece of I/O the pure internal/compiler.Compile never touches — file
// reads, the applier, metrics, logging — and is the sole caller that
// serializes compiles (§5: "the surrounding service... is the only caller;
// it serializes compiles").
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/proxmox/proxmox-firewall/internal/applier"
	"github.com/proxmox/proxmox-firewall/internal/compiler"
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/inventory"
	"github.com/proxmox/proxmox-firewall/internal/logging"
	"github.com/proxmox/proxmox-firewall/internal/metrics"
	"github.com/proxmox/proxmox-firewall/internal/nftjson"
)

// Config controls one Loop's behavior. It intentionally mirrors
// internal/svcconfig.Config's reconcile-relevant fields rather than
// importing that package directly, so Loop stays usable from tests without
// an HCL file on disk; cmd/pf-compile is the place the two get wired
// together.
type Config struct {
	// InventoryDir is the root of the on-disk legacy overlay tree (§6.4).
	InventoryDir string
	// DisableSentinelPath gates the compile to a flush-only ruleset when set
	// and the named file exists (§3 invariant 6).
	DisableSentinelPath string
	// Interval is how often Run recompiles. RunOnce ignores it.
	Interval time.Duration
	// Lenient is passed through to compiler.Options.
	Lenient bool
	// ApplierOptions is passed through to applier.Apply.
	ApplierOptions applier.Options
}

// Loop ties together inventory loading, compilation, application, metrics,
// and logging into one reconcile cycle, repeated on Config.Interval.
type Loop struct {
	cfg       Config
	providers inventory.Providers
	applier   *applier.Applier
	metrics   *metrics.Registry
	logger    *logging.Logger
}

// New builds a Loop. applierClient may be nil, in which case RunOnce
// compiles but never applies — useful for `pf-compile compile`/`validate`,
// which only want the compiled ruleset, not a live kernel mutation.
func New(cfg Config, providers inventory.Providers, applierClient *applier.Applier, reg *metrics.Registry, logger *logging.Logger) *Loop {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loop{cfg: cfg, providers: providers, applier: applierClient, metrics: reg, logger: logger.WithComponent("reconcile")}
}

// Result is what one reconcile cycle produced, returned by RunOnce so
// callers (tests, the CLI) can inspect the compiled ruleset without
// re-deriving it.
type Result struct {
	CycleID string
	Ruleset nftjson.Ruleset
	Applied bool
}

// RunOnce executes exactly one pass of the §4.H state machine:
// Idle -> ReadInputs -> BuildModel -> Validate -> Lower -> Serialize -> Idle.
// BuildModel/Validate/Lower are folded into compiler.Compile itself (the
// compiler's own internal state machine, §4.H); this method's stages are
// ReadInputs (LoadInventory, the disable-sentinel check) and the
// apply step the compiler never performs itself. A failure at any stage
// aborts the cycle without touching the live kernel ruleset (§4.H, §7).
func (l *Loop) RunOnce(ctx context.Context) (Result, error) {
	cycleID := uuid.New().String()
	log := l.logger.With("cycle_id", cycleID)
	start := time.Now()

	disabled, err := DisableFlagSet(l.cfg.DisableSentinelPath)
	if err != nil {
		l.observeCompile(start, false, 0)
		return Result{}, err
	}

	inv, err := LoadInventory(ctx, l.cfg.InventoryDir, l.providers)
	if err != nil {
		log.Error("failed to read inputs", "error", err)
		l.observeCompile(start, false, 0)
		return Result{}, err
	}

	rs, err := compiler.Compile(inv, disabled, compiler.Options{Lenient: l.cfg.Lenient})
	if err != nil {
		log.Error("compile failed", "error", err)
		l.observeCompile(start, false, 0)
		return Result{}, err
	}
	l.observeCompile(start, true, len(rs.Commands))
	log.Info("compiled ruleset", "commands", len(rs.Commands), "disabled", disabled)

	res := Result{CycleID: cycleID, Ruleset: rs}
	if l.applier == nil {
		return res, nil
	}

	applyStart := time.Now()
	if err := l.applier.Apply(ctx, rs, l.cfg.ApplierOptions); err != nil {
		log.Error("apply failed", "error", err)
		l.observeApply(applyStart, false)
		return res, pferrors.Wrap(err, pferrors.KindInternal, "apply ruleset")
	}
	l.observeApply(applyStart, true)
	res.Applied = true
	return res, nil
}

// Run calls RunOnce on Config.Interval until ctx is cancelled. Errors are
// logged but never stop the loop — the previous in-kernel ruleset is left
// intact and the next tick tries again (§7: a failed cycle never leaves a
// half-applied ruleset, but also never wedges the daemon).
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	if _, err := l.RunOnce(ctx); err != nil {
		l.logger.Warn("reconcile cycle failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.RunOnce(ctx); err != nil {
				l.logger.Warn("reconcile cycle failed", "error", err)
			}
		}
	}
}

func (l *Loop) observeCompile(start time.Time, ok bool, commandCount int) {
	if l.metrics == nil {
		return
	}
	l.metrics.ObserveCompile(time.Since(start).Seconds(), ok, commandCount)
}

func (l *Loop) observeApply(start time.Time, ok bool) {
	if l.metrics == nil {
		return
	}
	l.metrics.ObserveApply(time.Since(start).Seconds(), ok)
}
