// Package diff renders a line-level unified diff of a document before and
// after patching, for dry runs.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

type opKind byte

const (
	opEqual  opKind = ' '
	opDelete opKind = '-'
	opInsert opKind = '+'
)

type op struct {
	kind opKind
	text string
}

// Hunk is one contiguous group of changes with surrounding context.
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []string
}

// Stats counts changed lines.
type Stats struct {
	Added   int
	Removed int
}

func lines(old, new string) []op {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	a, b, lineArray := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []op
	for _, d := range diffs {
		kind := opEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = opDelete
		case diffmatchpatch.DiffInsert:
			kind = opInsert
		}
		if d.Text == "" {
			continue
		}
		for _, l := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			ops = append(ops, op{kind: kind, text: l})
		}
	}
	return ops
}

// Hunks groups the changes between old and new, keeping context unchanged
// lines on either side. Hunks whose context would touch are merged.
func Hunks(old, new string, context int) []Hunk {
	ops := lines(old, new)

	var changed []int
	for i, o := range ops {
		if o.kind != opEqual {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	// Line numbers before each op.
	oldLine := make([]int, len(ops)+1)
	newLine := make([]int, len(ops)+1)
	for i, o := range ops {
		oldLine[i+1], newLine[i+1] = oldLine[i], newLine[i]
		if o.kind != opInsert {
			oldLine[i+1]++
		}
		if o.kind != opDelete {
			newLine[i+1]++
		}
	}

	var hunks []Hunk
	lo := max(changed[0]-context, 0)
	hi := min(changed[0]+context+1, len(ops))
	flush := func() {
		h := Hunk{
			OldStart: oldLine[lo] + 1,
			NewStart: newLine[lo] + 1,
			OldCount: oldLine[hi] - oldLine[lo],
			NewCount: newLine[hi] - newLine[lo],
		}
		for _, o := range ops[lo:hi] {
			h.Lines = append(h.Lines, string(o.kind)+o.text)
		}
		// An empty side starts at the line before, as in diff -u.
		if h.OldCount == 0 {
			h.OldStart--
		}
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
	}
	for _, c := range changed[1:] {
		if c-context <= hi {
			hi = min(c+context+1, len(ops))
			continue
		}
		flush()
		lo = c - context
		hi = min(c+context+1, len(ops))
	}
	flush()
	return hunks
}

// Count returns the number of added and removed lines.
func Count(old, new string) Stats {
	var s Stats
	for _, o := range lines(old, new) {
		switch o.kind {
		case opInsert:
			s.Added++
		case opDelete:
			s.Removed++
		}
	}
	return s
}

// Unified renders the change from old to new as a unified diff with
// DefaultContext lines of context. It returns "" when nothing changed.
func Unified(path, old, new string) string {
	hunks := Hunks(old, new, DefaultContext)
	if len(hunks) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
