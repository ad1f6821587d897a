// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import (
	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
	"github.com/proxmox/proxmox-firewall/internal/model"
	"github.com/proxmox/proxmox-firewall/internal/valuegrammar"
)

// BuildHostOptions reads the fixed set of host/cluster option keys §4.H
// step 3 wires into the skeleton out of an `[OPTIONS]` section. Keys this
// package does not recognize are ignored rather than rejected — a legacy
// file is free to carry option keys no chain in this compiler consumes.
func BuildHostOptions(sec Section) (model.HostOptions, error) {
	var opts model.HostOptions
	for _, ln := range sec.Lines {
		key, val, err := splitKeyValue(ln.Text)
		if err != nil {
			return model.HostOptions{}, pferrors.WithProvenance(err, "", "host", ln.Num)
		}

		switch key {
		case "protection_synflood":
			opts.ProtectionSynflood, err = valuegrammar.ParseBool(val)
		case "nosmurfs":
			opts.NoSmurfs, err = valuegrammar.ParseBool(val)
		case "tcpflags":
			opts.TCPFlags, err = valuegrammar.ParseBool(val)
		case "nf_conntrack_allow_invalid":
			opts.ConntrackAllowInvalid, err = valuegrammar.ParseBool(val)
		default:
			continue
		}
		if err != nil {
			return model.HostOptions{}, pferrors.WithProvenance(err, "", "host", ln.Num)
		}
	}
	return opts, nil
}

// BuildGuestOptions reads one guest or VNet's `[OPTIONS]` section into a
// model.GuestOptions (§3). Unrecognized keys are ignored, matching
// BuildHostOptions.
func BuildGuestOptions(sec Section) (model.GuestOptions, error) {
	var opts model.GuestOptions
	for _, ln := range sec.Lines {
		key, val, err := splitKeyValue(ln.Text)
		if err != nil {
			return model.GuestOptions{}, pferrors.WithProvenance(err, "", "guest", ln.Num)
		}

		switch key {
		case "enable":
			opts.Enable, err = valuegrammar.ParseBool(val)
		case "ndp":
			opts.NDP, err = valuegrammar.ParseBool(val)
		case "ipfilter":
			opts.IPFilter, err = valuegrammar.ParseBool(val)
		case "dhcp":
			opts.DHCP, err = valuegrammar.ParseBool(val)
		case "macfilter":
			opts.MACFilter, err = valuegrammar.ParseBool(val)
		case "policy_in":
			opts.PolicyIn, err = valuegrammar.ParsePolicy(val)
		case "policy_out":
			opts.PolicyOut, err = valuegrammar.ParsePolicy(val)
		case "log_level_in":
			opts.LogLevelIn, err = valuegrammar.ParseLogLevel(val)
		case "log_level_out":
			opts.LogLevelOut, err = valuegrammar.ParseLogLevel(val)
		default:
			continue
		}
		if err != nil {
			return model.GuestOptions{}, pferrors.WithProvenance(err, "", "guest", ln.Num)
		}
	}
	return opts, nil
}
