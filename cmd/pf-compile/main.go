// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command pf-compile is the standalone entry point around the pure rule
// compiler (internal/compiler): it reads on-disk inventory, compiles an
// nftables ruleset, and optionally applies or reconciles it. It dispatches
// subcommands over stdlib flag.FlagSet, in the style of the teacher's own
// cmd/*.go tools (no third-party CLI framework appears anywhere in the
// retrieved corpus).
//
// Usage:
//
//	pf-compile compile -inventory-dir DIR [-fixture FILE] [-disable-file PATH] [-lenient] [-out FILE]
//	pf-compile validate -inventory-dir DIR [-fixture FILE] [-disable-file PATH] [-lenient]
//	pf-compile reconcile -config FILE.hcl
//	pf-compile init-config -out FILE.hcl -inventory-dir DIR
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/proxmox/proxmox-firewall/internal/applier"
	"github.com/proxmox/proxmox-firewall/internal/inventory"
	"github.com/proxmox/proxmox-firewall/internal/inventory/fixture"
	"github.com/proxmox/proxmox-firewall/internal/logging"
	"github.com/proxmox/proxmox-firewall/internal/metrics"
	"github.com/proxmox/proxmox-firewall/internal/reconcile"
	"github.com/proxmox/proxmox-firewall/internal/svcconfig"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "compile":
		err = runCompile(os.Args[2:], true)
	case "validate":
		err = runCompile(os.Args[2:], false)
	case "reconcile":
		err = runReconcile(os.Args[2:])
	case "init-config":
		err = runInitConfig(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "pf-compile: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "pf-compile: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pf-compile <compile|validate|reconcile|init-config> [flags]")
}

// runInitConfig scaffolds a starter reconcile daemon settings file, the way
// an operator would hand-write one before their first `pf-compile reconcile`.
func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	out := fs.String("out", "pf-reconcile.hcl", "path to write the settings file")
	inventoryDir := fs.String("inventory-dir", "/etc/pve/firewall", "inventory_dir value for the generated settings file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return svcconfig.WriteDefaultFile(*out, *inventoryDir)
}

// loadProviders opens the fixture snapshot at path, or returns an empty
// (zero-value) Snapshot when path is empty — a host/cluster-only compile
// with no guests or VNets is a valid, if degenerate, run.
func loadProviders(path string) (inventory.Providers, error) {
	var snap fixture.Snapshot
	if path != "" {
		var err error
		snap, err = fixture.LoadFile(path)
		if err != nil {
			return inventory.Providers{}, err
		}
	}
	return inventory.Providers{Guests: snap, VNets: snap, IPAM: snap}, nil
}

func runCompile(args []string, writeOutput bool) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	inventoryDir := fs.String("inventory-dir", "", "directory containing host.fw/cluster.fw and guests//vnets overlay subdirectories")
	fixturePath := fs.String("fixture", "", "YAML inventory fixture supplying guest/VNet/IPAM structural facts")
	disableFile := fs.String("disable-file", "", "path to the disable sentinel file")
	lenient := fs.Bool("lenient", false, "isolate a single guest's compile failure instead of aborting the whole run")
	out := fs.String("out", "", "write the compiled ruleset JSON here (default: stdout)")
	logLevel := fs.String("log-level", "info", "debug, info, warn, or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inventoryDir == "" {
		return fmt.Errorf("-inventory-dir is required")
	}

	logger := logging.New(logging.Config{Level: *logLevel})

	providers, err := loadProviders(*fixturePath)
	if err != nil {
		return err
	}

	loop := reconcile.New(reconcile.Config{
		InventoryDir:        *inventoryDir,
		DisableSentinelPath: *disableFile,
		Lenient:             *lenient,
	}, providers, nil, nil, logger)

	res, err := loop.RunOnce(context.Background())
	if err != nil {
		return err
	}

	body, err := res.Ruleset.MarshalJSON()
	if err != nil {
		return err
	}

	if !writeOutput {
		logger.Info("ruleset validated", "commands", len(res.Ruleset.Commands))
		return nil
	}

	if *out == "" || *out == "-" {
		_, err = os.Stdout.Write(append(body, '\n'))
		return err
	}
	return os.WriteFile(*out, append(body, '\n'), 0o644)
}

func runReconcile(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the daemon's svcconfig HCL settings file")
	dryRun := fs.Bool("dry-run", false, "validate each compiled ruleset without applying it, overriding the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("-config is required")
	}

	cfg, err := svcconfig.LoadFile(*configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.SetDefault(logger)

	providers, err := loadProviders(cfg.FixturePath)
	if err != nil {
		return err
	}

	applierOpts := applier.Options{
		DryRun:     cfg.Applier.DryRun || *dryRun,
		BackupPath: cfg.Applier.BackupPath,
	}

	var a *applier.Applier
	if !applierOpts.DryRun {
		a, err = applier.New(logger)
		if err != nil {
			return err
		}
		defer a.Close()
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	loop := reconcile.New(reconcile.Config{
		InventoryDir:        cfg.InventoryDir,
		DisableSentinelPath: cfg.DisableSentinelPath,
		Interval:            time.Duration(cfg.ReconcileIntervalSeconds) * time.Second,
		ApplierOptions:      applierOpts,
	}, providers, a, reg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting reconcile loop", "interval_seconds", cfg.ReconcileIntervalSeconds, "inventory_dir", cfg.InventoryDir)
	loop.Run(ctx)
	return nil
}
