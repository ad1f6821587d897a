// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package valuegrammar parses the small value grammar the legacy firewall
// config files use for rule lines and option values (§4.B). It does not
// tokenize whole files (see internal/legacyfmt for that) — it only turns one
// already-isolated rule line, or one option's raw string value, into a typed
// value.
package valuegrammar

import (
	"strconv"
	"strings"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

// Direction is a rule line's traffic direction.
type Direction string

const (
	DirectionIn      Direction = "IN"
	DirectionOut     Direction = "OUT"
	DirectionForward Direction = "FORWARD"
)

// Policy is one of the three terminal rule actions, also used for
// policy_in/policy_out option values.
type Policy string

const (
	PolicyAccept Policy = "ACCEPT"
	PolicyReject Policy = "REJECT"
	PolicyDrop   Policy = "DROP"
)

// LogLevel is one of the fixed syslog-style levels §4.B enumerates, or
// "nolog".
type LogLevel string

const (
	LogNolog   LogLevel = "nolog"
	LogEmerg   LogLevel = "emerg"
	LogAlert   LogLevel = "alert"
	LogCrit    LogLevel = "crit"
	LogErr     LogLevel = "err"
	LogWarning LogLevel = "warning"
	LogNotice  LogLevel = "notice"
	LogInfo    LogLevel = "info"
	LogDebug   LogLevel = "debug"
)

var validLogLevels = map[LogLevel]bool{
	LogNolog: true, LogEmerg: true, LogAlert: true, LogCrit: true,
	LogErr: true, LogWarning: true, LogNotice: true, LogInfo: true, LogDebug: true,
}

var validPolicies = map[Policy]bool{
	PolicyAccept: true, PolicyReject: true, PolicyDrop: true,
}

// RuleLine is the parsed form of one `[RULES]` line:
//
//	DIR ACTION [-i IFACE] [-source S] [-dest D] [-p PROTO] [-dport P]
//	    [-sport P] [--icmp-type T|any] [-log LEVEL|nolog]
type RuleLine struct {
	Direction Direction
	Action    string // a Policy, a macro name, or a security group name — resolved by the caller
	Iface     string
	Source    string
	Dest      string
	Proto     string
	DPort     string
	SPort     string
	ICMPType  string
	Log       LogLevel

	// HasLog is true only when -log was explicitly given; Log otherwise
	// carries the zero value so callers can distinguish "not specified"
	// from "-log nolog".
	HasLog bool
}

// optionArity lists every option token this grammar accepts, and whether it
// takes a following value token.
var optionArity = map[string]bool{
	"-i":          true,
	"-source":     true,
	"-dest":       true,
	"-p":          true,
	"-dport":      true,
	"-sport":      true,
	"--icmp-type": true,
	"-log":        true,
}

// ParseRuleLine parses one whitespace-tokenized rule line. Tokens after the
// action are order-insensitive, per §4.B.
func ParseRuleLine(line string) (RuleLine, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return RuleLine{}, pferrors.MissingRequired("direction and action")
	}

	dir := Direction(strings.ToUpper(fields[0]))
	if dir != DirectionIn && dir != DirectionOut && dir != DirectionForward {
		return RuleLine{}, pferrors.BadValue("direction", fields[0])
	}

	rl := RuleLine{Direction: dir, Action: fields[1]}

	rest := fields[2:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if !strings.HasPrefix(tok, "-") {
			return RuleLine{}, pferrors.BadValue("rule token", tok)
		}
		takesValue, known := optionArity[tok]
		if !known {
			return RuleLine{}, pferrors.UnknownOption(tok)
		}
		if !takesValue {
			continue
		}
		i++
		if i >= len(rest) {
			return RuleLine{}, pferrors.MissingRequired(tok)
		}
		val := rest[i]
		switch tok {
		case "-i":
			rl.Iface = val
		case "-source":
			rl.Source = val
		case "-dest":
			rl.Dest = val
		case "-p":
			rl.Proto = val
		case "-dport":
			rl.DPort = val
		case "-sport":
			rl.SPort = val
		case "--icmp-type":
			rl.ICMPType = val
		case "-log":
			level, err := ParseLogLevel(val)
			if err != nil {
				return RuleLine{}, err
			}
			rl.Log = level
			rl.HasLog = true
		}
	}

	return rl, nil
}

// ParseBool parses the "0"/"1" boolean convention option values use.
func ParseBool(value string) (bool, error) {
	switch value {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, pferrors.BadValue("bool", value)
	}
}

// ParseInt parses an integer option value.
func ParseInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, pferrors.BadValue("int", value)
	}
	return n, nil
}

// ParseLogLevel validates value against the fixed log-level enumeration.
func ParseLogLevel(value string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(value))
	if !validLogLevels[level] {
		return "", pferrors.BadValue("log level", value)
	}
	return level, nil
}

// ParsePolicy validates value against {ACCEPT, REJECT, DROP}.
func ParsePolicy(value string) (Policy, error) {
	policy := Policy(strings.ToUpper(value))
	if !validPolicies[policy] {
		return "", pferrors.InvalidPolicy(value)
	}
	return policy, nil
}
