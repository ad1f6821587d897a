// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package legacyfmt splits one on-disk legacy firewall config file into its
// `[OPTIONS]`/`[ALIASES]`/`[IPSET name]`/`[GROUP name]`/`[RULES]` sections
// (§6.4). It does the minimum section/line splitting the core needs and
// hands each rule line straight to internal/valuegrammar — full tokenization
// of the legacy format is explicitly out of scope for the compiler itself,
// so this package stays deliberately thin rather than growing into a general
// config-file library.
package legacyfmt

import (
	"bufio"
	"io"
	"strings"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

// SectionKind identifies which of the five §6.4 section headers a Section
// came from.
type SectionKind int

const (
	SectionOptions SectionKind = iota
	SectionAliases
	SectionIPSet
	SectionGroup
	SectionRules
)

// Line is one non-blank, non-comment line within a section, carrying its
// 1-based source line number for provenance (§7).
type Line struct {
	Text string
	Num  int
}

// Section is one `[...]` block and the lines beneath it, up to the next
// header or end of file. Name holds the IP set or group name for
// `[IPSET name]`/`[GROUP name]` headers; it is empty for the other three
// kinds.
type Section struct {
	Kind  SectionKind
	Name  string
	Lines []Line
}

// File is the fully-split form of one legacy config file. Section order
// matches declaration order in the source file, and a given kind may appear
// more than once (multiple `[IPSET ...]`/`[GROUP ...]` blocks are normal;
// callers that expect at most one `[OPTIONS]`/`[ALIASES]`/`[RULES]` block
// use the First* accessors below).
type File struct {
	Name     string
	Sections []Section
}

// FirstOptions returns the file's first `[OPTIONS]` section, if any.
func (f *File) FirstOptions() (Section, bool) {
	return f.first(SectionOptions)
}

// FirstAliases returns the file's first `[ALIASES]` section, if any.
func (f *File) FirstAliases() (Section, bool) {
	return f.first(SectionAliases)
}

// FirstRules returns the file's first `[RULES]` section, if any.
func (f *File) FirstRules() (Section, bool) {
	return f.first(SectionRules)
}

func (f *File) first(kind SectionKind) (Section, bool) {
	for _, s := range f.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

// All returns every section of kind, in declaration order.
func (f *File) All(kind SectionKind) []Section {
	var out []Section
	for _, s := range f.Sections {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Parse splits r into a File. filename is attached to every error for
// provenance (§7) and is not otherwise interpreted.
func Parse(r io.Reader, filename string) (*File, error) {
	f := &File{Name: filename}
	scanner := bufio.NewScanner(r)

	curIdx := -1
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			sec, err := parseSectionHeader(line)
			if err != nil {
				return nil, pferrors.WithProvenance(err, filename, "", lineNo)
			}
			f.Sections = append(f.Sections, sec)
			curIdx = len(f.Sections) - 1
			continue
		}

		if curIdx < 0 {
			return nil, pferrors.WithProvenance(pferrors.MalformedSection(line), filename, "", lineNo)
		}
		f.Sections[curIdx].Lines = append(f.Sections[curIdx].Lines, Line{Text: line, Num: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, pferrors.Wrapf(err, pferrors.KindInternal, "reading %s", filename)
	}
	return f, nil
}

// parseSectionHeader parses one "[KEYWORD]" or "[KEYWORD name]" line.
func parseSectionHeader(line string) (Section, error) {
	if !strings.HasSuffix(line, "]") {
		return Section{}, pferrors.MalformedSection(line)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return Section{}, pferrors.MalformedSection(line)
	}

	fields := strings.SplitN(inner, " ", 2)
	keyword := strings.ToUpper(strings.TrimSpace(fields[0]))

	switch keyword {
	case "OPTIONS":
		return Section{Kind: SectionOptions}, nil
	case "ALIASES":
		return Section{Kind: SectionAliases}, nil
	case "RULES":
		return Section{Kind: SectionRules}, nil
	case "IPSET":
		name, err := sectionArg(fields, line)
		if err != nil {
			return Section{}, err
		}
		return Section{Kind: SectionIPSet, Name: name}, nil
	case "GROUP":
		name, err := sectionArg(fields, line)
		if err != nil {
			return Section{}, err
		}
		return Section{Kind: SectionGroup, Name: name}, nil
	default:
		return Section{}, pferrors.UnknownSection(keyword)
	}
}

func sectionArg(fields []string, line string) (string, error) {
	if len(fields) != 2 || strings.TrimSpace(fields[1]) == "" {
		return "", pferrors.MalformedSection(line)
	}
	return strings.TrimSpace(fields[1]), nil
}

// splitKeyValue parses one `[OPTIONS]`/`[ALIASES]` line as "key: value" (the
// form every sample file in the pack uses), falling back to "key value" for
// a bare whitespace-separated pair.
func splitKeyValue(line string) (string, string, error) {
	if idx := strings.IndexByte(line, ':'); idx >= 0 {
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return "", "", pferrors.BadValue("option line", line)
		}
		return key, val, nil
	}
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 {
		return "", "", pferrors.BadValue("option line", line)
	}
	return strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1]), nil
}
