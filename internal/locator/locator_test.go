package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tabs = `<Tabs>
    {/* Tab 1: Spilling */}
    <Spill />

    {/* Tab 2: Range Join */}
    <RangeJoin />

    {/* Tab 3: Pruning */}
    <Pruning />
</Tabs>
`

func TestLocate_UntilSibling(t *testing.T) {
	start := Literal("{/* Tab 2: Range Join */}")
	end := Siblings{Patterns: []Matcher{MustRegexp(`\{/\* Tab \d+:`)}}

	sec, err := Locate(tabs, start, end, 0)
	require.NoError(t, err)

	body := tabs[sec.Start:sec.End]
	assert.Contains(t, body, "<RangeJoin />")
	assert.NotContains(t, body, "Pruning")
	assert.Equal(t, "{/* Tab 3: Pruning */}", tabs[sec.End:sec.End+len("{/* Tab 3: Pruning */}")])
}

func TestLocate_NotFound(t *testing.T) {
	_, err := Locate(tabs, Literal("{/* Tab 9 */}"), nil, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Locate(tabs, Literal("{/* Tab 3: Pruning */}"), Explicit{Pattern: Literal("<Missing>")}, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocate_EarliestSiblingWins(t *testing.T) {
	text := "START a END2 b END1 c"
	end := Siblings{Patterns: []Matcher{Literal("END1"), Literal("END2")}}

	sec, err := Locate(text, Literal("START"), end, 0)
	require.NoError(t, err)
	assert.Equal(t, "START a ", text[sec.Start:sec.End])
}

func TestLocate_AmbiguousSiblings(t *testing.T) {
	text := "START a ENDX"
	end := Siblings{Patterns: []Matcher{Literal("END"), Literal("ENDX")}}

	_, err := Locate(text, Literal("START"), end, 0)
	assert.ErrorIs(t, err, ErrAmbiguousMatch)

	// An earlier sibling settles it.
	text = "START a STOP ENDX"
	end.Patterns = append(end.Patterns, Literal("STOP"))
	sec, err := Locate(text, Literal("START"), end, 0)
	require.NoError(t, err)
	assert.Equal(t, "START a ", text[sec.Start:sec.End])
}

func TestLocate_SiblingOrEOF(t *testing.T) {
	sib := Siblings{Patterns: []Matcher{MustRegexp(`\{/\* Tab \d+:`)}}

	_, err := Locate(tabs, Literal("{/* Tab 3"), sib, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	sib.OrEOF = true
	sec, err := Locate(tabs, Literal("{/* Tab 3"), sib, 0)
	require.NoError(t, err)
	assert.Equal(t, len(tabs), sec.End)
}

func TestLocate_ExplicitInclusive(t *testing.T) {
	text := "keep\n// Anim\nuseEffect(() => {\n  tick()\n}, [a, b]);\n\nrest"
	start := Literal("// Anim")

	sec, err := Locate(text, start, Explicit{Pattern: Literal("}, [a, b]);")}, 0)
	require.NoError(t, err)
	assert.NotContains(t, text[sec.Start:sec.End], "[a, b]")

	sec, err = Locate(text, start, Explicit{Pattern: Literal("}, [a, b]);"), Inclusive: true}, 0)
	require.NoError(t, err)
	assert.True(t, len(text[sec.Start:sec.End]) > 0)
	assert.Equal(t, "\n\nrest", text[sec.End:])
}

func TestLocate_MatchOnly(t *testing.T) {
	text := "{ id: 'a' },\n{ id: 'rangejoin', label: 'x' },\n{ id: 'b' },"
	sec, err := Locate(text, MustRegexp(`\{ id: 'rangejoin'[^}]*\},\s*`), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "{ id: 'a' },\n{ id: 'b' },", text[:sec.Start]+text[sec.End:])
}

func TestLocate_FromOffset(t *testing.T) {
	text := "X one X two"
	sec, err := Locate(text, Literal("X"), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, sec.Start)
}

func TestRegexp_AnchorsKeepContext(t *testing.T) {
	headings := MustRegexp(`(?m)^#`)
	secs, err := LocateAll("## Title\n# Sub\n", headings, nil)
	require.NoError(t, err)
	var starts []int
	for _, s := range secs {
		starts = append(starts, s.Start)
	}
	assert.Equal(t, []int{0, 9}, starts)

	_, ok := headings.Find("## Title\n", 1)
	assert.False(t, ok)
	assert.Len(t, headings.FindAll("## Title\n# Sub\n", 1), 1)

	text := "{/* MyTab 2 */}\nbody\n{/* Tab 3 */}\n"
	end := Siblings{Patterns: []Matcher{MustRegexp(`\bTab \d`)}}
	sec, err := Locate(text, Literal("{/* My"), end, 0)
	require.NoError(t, err)
	assert.Equal(t, "{/* MyTab 2 */}\nbody\n{/* ", text[sec.Start:sec.End])
}

func TestLocateAll(t *testing.T) {
	marker := MustRegexp(`\{/\* Tab (\d+):`)
	secs, err := LocateAll(tabs, marker, Siblings{Patterns: []Matcher{marker}, OrEOF: true})
	require.NoError(t, err)
	require.Len(t, secs, 3)
	for i := 1; i < len(secs); i++ {
		assert.Equal(t, secs[i-1].End, secs[i].Start)
	}
	assert.Equal(t, []string{"1", "2", "3"}, []string{secs[0].Marker.Label(), secs[1].Marker.Label(), secs[2].Marker.Label()})

	none, err := LocateAll(tabs, Literal("absent"), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestParsePattern(t *testing.T) {
	m, err := ParsePattern("plain text")
	require.NoError(t, err)
	assert.Equal(t, Literal("plain text"), m)

	m, err = ParsePattern("lit:re:not-a-regex")
	require.NoError(t, err)
	assert.Equal(t, Literal("re:not-a-regex"), m)

	m, err = ParsePattern(`re:Section-(?P<n>\d+)`)
	require.NoError(t, err)
	hit, ok := m.Find("x Section-42 y", 0)
	require.True(t, ok)
	assert.Equal(t, "42", hit.Label())

	m, err = ParsePattern("glob:Tab ?: *Join")
	require.NoError(t, err)
	hit, ok = m.Find("{/* Tab 2: Range Join */}", 0)
	require.True(t, ok)
	assert.Equal(t, "Tab 2: Range Join", hit.Text)

	_, err = ParsePattern("re:(")
	assert.ErrorIs(t, err, ErrInvalidPattern)
	_, err = ParsePattern("")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestParsePattern_Cached(t *testing.T) {
	a, err := ParsePattern(`re:\{/\* Tab (\d+):`)
	require.NoError(t, err)
	b, err := ParsePattern(`re:\{/\* Tab (\d+):`)
	require.NoError(t, err)
	assert.Same(t, a.(*Regexp), b.(*Regexp))

	// Failures are not cached.
	_, err = ParsePattern("re:[")
	assert.ErrorIs(t, err, ErrInvalidPattern)
	_, err = ParsePattern("re:[")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
