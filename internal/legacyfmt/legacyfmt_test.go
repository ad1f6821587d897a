// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package legacyfmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/proxmox/proxmox-firewall/internal/errors"
)

func TestParse_SplitsSectionsAndSkipsCommentsAndBlanks(t *testing.T) {
	doc := `
# a leading comment
[OPTIONS]
enable: 1

[ALIASES]
gw: 10.0.0.1

# a mid-file comment
[IPSET trusted]
10.0.0.0/24
!10.0.0.5

[RULES]
IN ACCEPT -source gw
`
	f, err := Parse(strings.NewReader(doc), "test.fw")
	require.NoError(t, err)
	require.Len(t, f.Sections, 4)

	assert.Equal(t, SectionOptions, f.Sections[0].Kind)
	assert.Equal(t, []Line{{Text: "enable: 1", Num: 4}}, f.Sections[0].Lines)

	assert.Equal(t, SectionAliases, f.Sections[1].Kind)
	assert.Equal(t, "gw: 10.0.0.1", f.Sections[1].Lines[0].Text)

	assert.Equal(t, SectionIPSet, f.Sections[2].Kind)
	assert.Equal(t, "trusted", f.Sections[2].Name)
	require.Len(t, f.Sections[2].Lines, 2)

	assert.Equal(t, SectionRules, f.Sections[3].Kind)
	assert.Equal(t, "IN ACCEPT -source gw", f.Sections[3].Lines[0].Text)
}

func TestParse_UnknownSectionHeaderFails(t *testing.T) {
	_, err := Parse(strings.NewReader("[BOGUS]\nfoo\n"), "test.fw")
	require.Error(t, err)
	assert.Equal(t, pferrors.CodeUnknownSection, pferrors.GetCode(err))
}

func TestParse_MalformedSectionHeaderFails(t *testing.T) {
	_, err := Parse(strings.NewReader("[IPSET]\nfoo\n"), "test.fw")
	require.Error(t, err)
	assert.Equal(t, pferrors.CodeMalformedSection, pferrors.GetCode(err))
}

func TestParse_LineBeforeAnySectionFails(t *testing.T) {
	_, err := Parse(strings.NewReader("enable: 1\n[OPTIONS]\n"), "test.fw")
	require.Error(t, err)
	assert.Equal(t, pferrors.CodeMalformedSection, pferrors.GetCode(err))
}

func TestParse_MultipleSectionsOfSameKindArePreserved(t *testing.T) {
	doc := "[IPSET a]\n1.2.3.4\n[IPSET b]\n5.6.7.8\n"
	f, err := Parse(strings.NewReader(doc), "test.fw")
	require.NoError(t, err)

	sets := f.All(SectionIPSet)
	require.Len(t, sets, 2)
	assert.Equal(t, "a", sets[0].Name)
	assert.Equal(t, "b", sets[1].Name)
}
