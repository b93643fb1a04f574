// Package renumber keeps a family of sequentially numbered markers contiguous.
package renumber

import (
	"fmt"
	"strconv"
	"strings"

	"docpatch/internal/editor"
	"docpatch/internal/locator"
)

// Family is a set of sibling markers whose label token is a sequence number,
// e.g. `re:\{/\* Tab (\d+):`.
type Family struct {
	Marker locator.Matcher
	Start  int
}

// Change records one marker whose number was rewritten.
type Change struct {
	Offset int
	From   int
	To     int
}

// First returns the smallest number carried by the family's markers in text.
func First(text string, marker locator.Matcher) (int, bool, error) {
	first, found := 0, false
	for _, m := range marker.FindAll(text, 0) {
		n, err := number(m)
		if err != nil {
			return 0, false, err
		}
		if !found || n < first {
			first, found = n, true
		}
	}
	return first, found, nil
}

// Renumber assigns Start, Start+1, ... to the family's markers in document
// order. Only the number tokens change; a marker that already carries the
// right number is left alone. Two markers with the same number are resolved
// by position: the earlier one gets the lower number.
func Renumber(text string, f Family) (string, []Change, error) {
	markers := f.Marker.FindAll(text, 0)
	var (
		edits   []editor.Edit
		changes []Change
	)
	for i, m := range markers {
		n, err := number(m)
		if err != nil {
			return "", nil, err
		}
		want := f.Start + i
		if n == want {
			continue
		}
		e, err := editor.RenameEdit(m, format(want, m.Label()))
		if err != nil {
			return "", nil, err
		}
		edits = append(edits, e)
		changes = append(changes, Change{Offset: m.Start, From: n, To: want})
	}
	out, err := editor.Apply(text, edits)
	if err != nil {
		return "", nil, err
	}
	return out, changes, nil
}

func number(m locator.Match) (int, error) {
	if !m.HasLabel() {
		return 0, fmt.Errorf("%w: %q", editor.ErrNoLabel, m.Text)
	}
	n, err := strconv.Atoi(m.Label())
	if err != nil {
		return 0, fmt.Errorf("marker %q: label %q is not a number", m.Text, m.Label())
	}
	return n, nil
}

// format keeps zero padding when the old label had it.
func format(n int, old string) string {
	if len(old) > 1 && strings.HasPrefix(old, "0") {
		return fmt.Sprintf("%0*d", len(old), n)
	}
	return strconv.Itoa(n)
}
