package editor

import (
	"math/rand"
	"testing"

	"docpatch/internal/locator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secs = "SEC-A\nalpha content\n\nSEC-B\nbeta content\nmore beta\n\nSEC-C\ngamma content\n"

var secMarker = locator.MustRegexp(`SEC-[A-Z]`)

func section(t *testing.T, text, name string) locator.Section {
	t.Helper()
	sec, err := locator.Locate(text, locator.Literal(name), locator.Siblings{Patterns: []locator.Matcher{secMarker}, OrEOF: true}, 0)
	require.NoError(t, err)
	return sec
}

func TestDelete_BlankLineSeam(t *testing.T) {
	out, err := Delete(secs, section(t, secs, "SEC-B"), SeamBlankLine)
	require.NoError(t, err)

	assert.Equal(t, "SEC-A\nalpha content\n\nSEC-C\ngamma content\n", out)
	assert.NotContains(t, out, "SEC-B")
	assert.NotContains(t, out, "beta")
}

func TestDelete_Verbatim(t *testing.T) {
	sec := section(t, secs, "SEC-B")
	out, err := Delete(secs, sec, SeamNone)
	require.NoError(t, err)
	assert.Equal(t, secs[:sec.Start]+secs[sec.End:], out)
}

func TestDelete_LastAndFirstSection(t *testing.T) {
	out, err := Delete(secs, section(t, secs, "SEC-C"), SeamBlankLine)
	require.NoError(t, err)
	assert.Equal(t, "SEC-A\nalpha content\n\nSEC-B\nbeta content\nmore beta\n", out)

	out, err = Delete(secs, section(t, secs, "SEC-A"), SeamBlankLine)
	require.NoError(t, err)
	assert.Equal(t, "SEC-B\nbeta content\nmore beta\n\nSEC-C\ngamma content\n", out)
}

func TestDelete_KeepsIndentation(t *testing.T) {
	text := "<Tabs>\n    {/* Tab 1 */}\n    <One />\n\n    {/* Tab 2 */}\n    <Two />\n\n    {/* Tab 3 */}\n    <Three />\n</Tabs>\n"
	marker := locator.MustRegexp(`\{/\* Tab \d+ \*/\}`)
	sec, err := locator.Locate(text, locator.Literal("{/* Tab 2 */}"), locator.Siblings{Patterns: []locator.Matcher{marker}}, 0)
	require.NoError(t, err)

	out, err := Delete(text, sec, SeamBlankLine)
	require.NoError(t, err)
	assert.Equal(t, "<Tabs>\n    {/* Tab 1 */}\n    <One />\n\n    {/* Tab 3 */}\n    <Three />\n</Tabs>\n", out)
}

func TestReplace(t *testing.T) {
	sec := section(t, secs, "SEC-B")
	out, err := Replace(secs, sec, "SEC-B\nnew beta\n\n")
	require.NoError(t, err)
	assert.Equal(t, "SEC-A\nalpha content\n\nSEC-B\nnew beta\n\nSEC-C\ngamma content\n", out)
}

func TestRenameMarker(t *testing.T) {
	text := "/* Section-4: Caching */ body"
	m, ok := locator.MustRegexp(`Section-(\d+)`).Find(text, 0)
	require.True(t, ok)

	out, err := RenameMarker(text, m, "2")
	require.NoError(t, err)
	assert.Equal(t, "/* Section-2: Caching */ body", out)

	noLabel, _ := locator.Literal("Section").Find(text, 0)
	_, err = RenameMarker(text, noLabel, "2")
	assert.ErrorIs(t, err, ErrNoLabel)
}

func TestApply_OrderIndependent(t *testing.T) {
	text := "Tab 1: a\nTab 2: b\nTab 3: c\nTab 4: d\n"
	marker := locator.MustRegexp(`Tab (\d+):`)
	all, err := locator.LocateAll(text, marker, locator.Siblings{Patterns: []locator.Matcher{marker}, OrEOF: true})
	require.NoError(t, err)
	require.Len(t, all, 4)

	rename, err := RenameEdit(all[3].Marker, "3")
	require.NoError(t, err)
	edits := []Edit{
		DeleteEdit(all[1], SeamNone),
		DeleteEdit(all[2], SeamNone),
		rename,
		ReplaceEdit(locator.Section{Start: all[0].End - 2, End: all[0].End - 1}, "A"),
	}

	want := "Tab 1: A\nTab 3: d\n"
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(edits), func(a, b int) { edits[a], edits[b] = edits[b], edits[a] })
		out, err := Apply(text, edits)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	}
}

func TestApply_Overlap(t *testing.T) {
	_, err := Apply("0123456789", []Edit{{Start: 2, End: 6, Text: "x"}, {Start: 4, End: 8, Text: "y"}})
	assert.ErrorIs(t, err, ErrOverlap)

	_, err = Apply("0123", []Edit{{Start: 2, End: 9}})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestApply_MergesAdjacentDeletes(t *testing.T) {
	b, c := section(t, secs, "SEC-B"), section(t, secs, "SEC-C")
	out, err := Apply(secs, []Edit{DeleteEdit(c, SeamBlankLine), DeleteEdit(b, SeamBlankLine)})
	require.NoError(t, err)
	assert.Equal(t, "SEC-A\nalpha content\n", out)
}

func TestApply_Empty(t *testing.T) {
	out, err := Apply(secs, nil)
	require.NoError(t, err)
	assert.Equal(t, secs, out)
}

func TestParseSeam(t *testing.T) {
	s, err := ParseSeam("", SeamBlankLine)
	require.NoError(t, err)
	assert.Equal(t, SeamBlankLine, s)

	s, err = ParseSeam("none", SeamBlankLine)
	require.NoError(t, err)
	assert.Equal(t, SeamNone, s)

	_, err = ParseSeam("squash", SeamNone)
	assert.Error(t, err)
}
