package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int, skip ...int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		dropped := false
		for _, s := range skip {
			dropped = dropped || s == i
		}
		if !dropped {
			fmt.Fprintf(&sb, "line %d\n", i)
		}
	}
	return sb.String()
}

func TestUnified_SingleRemoval(t *testing.T) {
	old := "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\n"
	new := "a\nb\nc\nd\nf\ng\nh\ni\nj\n"

	want := "--- a/view.tsx\n+++ b/view.tsx\n@@ -2,7 +2,6 @@\n b\n c\n d\n-e\n f\n g\n h\n"
	assert.Equal(t, want, Unified("view.tsx", old, new))
}

func TestUnified_NoChange(t *testing.T) {
	assert.Equal(t, "", Unified("x", "same\n", "same\n"))
}

func TestHunks_SeparateAndMerged(t *testing.T) {
	old := numbered(30)

	hunks := Hunks(old, numbered(30, 3, 25), DefaultContext)
	require.Len(t, hunks, 2)
	assert.Equal(t, 1, hunks[0].OldStart)
	assert.Equal(t, "-line 3", hunks[0].Lines[2])
	assert.Equal(t, 22, hunks[1].OldStart)
	assert.Equal(t, 7, hunks[1].OldCount)
	assert.Equal(t, 6, hunks[1].NewCount)

	hunks = Hunks(old, numbered(30, 10, 15), DefaultContext)
	require.Len(t, hunks, 1)
	assert.Equal(t, 7, hunks[0].OldStart)
	assert.Equal(t, 12, hunks[0].OldCount)
	assert.Equal(t, 10, hunks[0].NewCount)
}

func TestHunks_Replacement(t *testing.T) {
	hunks := Hunks("{/* Tab 3: Pruning */}\n", "{/* Tab 2: Pruning */}\n", DefaultContext)
	require.Len(t, hunks, 1)
	want := Hunk{
		OldStart: 1, OldCount: 1,
		NewStart: 1, NewCount: 1,
		Lines: []string{"-{/* Tab 3: Pruning */}", "+{/* Tab 2: Pruning */}"},
	}
	if d := cmp.Diff(want, hunks[0]); d != "" {
		t.Errorf("hunk mismatch (-want +got):\n%s", d)
	}
}

func TestCount(t *testing.T) {
	s := Count(numbered(10), numbered(10, 4, 5, 6))
	assert.Equal(t, Stats{Removed: 3}, s)

	s = Count("a\n", "a\nb\nc\n")
	assert.Equal(t, Stats{Added: 2}, s)
}
