// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import "fmt"

// Code names one of the compiler's well-known validation failures (spec §7).
// It is attached to every error returned by the constructors below under the
// "code" attribute so callers can switch on it with GetCode(err) without string
// matching on the message.
type Code string

const (
	CodeMalformedAddress  Code = "malformed_address"
	CodeFamilyMismatch    Code = "family_mismatch"
	CodeEmptyRange        Code = "empty_range"
	CodeUnknownService    Code = "unknown_service"
	CodeUnknownOption     Code = "unknown_option"
	CodeBadValue          Code = "bad_value"
	CodeMissingRequired   Code = "missing_required"
	CodeUnresolvedAlias   Code = "unresolved_alias"
	CodeUnresolvedSetRef  Code = "unresolved_set_ref"
	CodeUnknownGroup      Code = "unknown_group"
	CodeUnknownMacro      Code = "unknown_macro"
	CodeMacroFamilyEmpty  Code = "macro_family_empty"
	CodeDuplicateName     Code = "duplicate_name"
	CodeNameSyntax        Code = "name_syntax"
	CodeInvalidPolicy     Code = "invalid_policy"
	CodeUnknownSection    Code = "unknown_section"
	CodeMalformedSection  Code = "malformed_section"
)

// withCode stamps a Code attribute on a freshly built validation Error.
func withCode(code Code, msg string) error {
	e := &Error{Kind: KindValidation, Message: msg}
	e.Attributes = map[string]any{"code": string(code)}
	return e
}

// GetCode returns the Code attribute attached to err, or "" if none is set.
func GetCode(err error) Code {
	attrs := GetAttributes(err)
	if v, ok := attrs["code"]; ok {
		if s, ok := v.(string); ok {
			return Code(s)
		}
	}
	return ""
}

// WithProvenance attaches file/scope/rule-index provenance to err, per §7's
// "errors are reported with provenance" propagation policy. It is a no-op on
// a nil error so it composes at call sites without an extra nil check.
func WithProvenance(err error, file, scope string, ruleIndex int) error {
	if err == nil {
		return nil
	}
	err = Attr(err, "file", file)
	err = Attr(err, "scope", scope)
	err = Attr(err, "rule_index", ruleIndex)
	return err
}

func MalformedAddress(input string) error {
	return withCode(CodeMalformedAddress, fmt.Sprintf("malformed address: %q", input))
}

func FamilyMismatch(detail string) error {
	return withCode(CodeFamilyMismatch, fmt.Sprintf("address family mismatch: %s", detail))
}

func EmptyRange(lo, hi string) error {
	return withCode(CodeEmptyRange, fmt.Sprintf("empty range: %s > %s", lo, hi))
}

func UnknownService(name string) error {
	return withCode(CodeUnknownService, fmt.Sprintf("unknown service name: %q", name))
}

func UnknownOption(name string) error {
	return withCode(CodeUnknownOption, fmt.Sprintf("unknown option: %q", name))
}

func BadValue(field, value string) error {
	return withCode(CodeBadValue, fmt.Sprintf("bad value for %s: %q", field, value))
}

func MissingRequired(field string) error {
	return withCode(CodeMissingRequired, fmt.Sprintf("missing required field: %s", field))
}

func UnresolvedAlias(scope, name string) error {
	return withCode(CodeUnresolvedAlias, fmt.Sprintf("unresolved alias %s/%s", scope, name))
}

func UnresolvedSetRef(name string) error {
	return withCode(CodeUnresolvedSetRef, fmt.Sprintf("unresolved ip set reference: %q", name))
}

func UnknownGroup(name string) error {
	return withCode(CodeUnknownGroup, fmt.Sprintf("unknown security group: %q", name))
}

func UnknownMacro(name string) error {
	return withCode(CodeUnknownMacro, fmt.Sprintf("unknown macro: %q", name))
}

func MacroFamilyEmpty(name string) error {
	return withCode(CodeMacroFamilyEmpty, fmt.Sprintf("macro %q has no fragment compatible with the rule's restricted family", name))
}

func DuplicateName(scope, name string) error {
	return withCode(CodeDuplicateName, fmt.Sprintf("duplicate name %q in scope %s", name, scope))
}

func NameSyntax(name string) error {
	return withCode(CodeNameSyntax, fmt.Sprintf("invalid name syntax: %q", name))
}

func InvalidPolicy(value string) error {
	return withCode(CodeInvalidPolicy, fmt.Sprintf("invalid policy value: %q", value))
}

func UnknownSection(header string) error {
	return withCode(CodeUnknownSection, fmt.Sprintf("unknown section header: %q", header))
}

func MalformedSection(line string) error {
	return withCode(CodeMalformedSection, fmt.Sprintf("malformed section header: %q", line))
}
