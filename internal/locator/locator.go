// Package locator finds marker-delimited sections in a text document.
//
// A section starts at a marker match and ends either at the next sibling
// marker, at an explicit end marker, at a balanced close found by a scanner,
// or at the end of the start match itself when no end condition is given.
package locator

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a start or end marker is absent. Callers
	// that treat "already gone" as success can check for it with errors.Is.
	ErrNotFound = errors.New("marker not found")

	// ErrAmbiguousMatch is returned when two sibling patterns match different
	// markers at the same offset.
	ErrAmbiguousMatch = errors.New("ambiguous end marker")

	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Section is the half-open range [Start, End) of a located section.
type Section struct {
	Start  int
	End    int
	Marker Match
}

// Len returns the section length in bytes.
func (s Section) Len() int { return s.End - s.Start }

// EndCondition decides where a section that begins at marker m ends.
type EndCondition interface {
	FindEnd(text string, m Match) (int, error)
}

// Siblings ends a section right before the earliest match of any sibling
// pattern after the start marker. With OrEOF the last section of a family
// runs to the end of the document instead of failing.
type Siblings struct {
	Patterns []Matcher
	OrEOF    bool
}

func (s Siblings) FindEnd(text string, m Match) (int, error) {
	var (
		best         Match
		bestPat, dup Matcher
		found        bool
	)
	for _, p := range s.Patterns {
		hit, ok := p.Find(text, m.End)
		if !ok {
			continue
		}
		switch {
		case !found || hit.Start < best.Start:
			best, bestPat, dup, found = hit, p, nil, true
		case hit.Start == best.Start && hit.Text != best.Text:
			dup = p
		}
	}
	if dup != nil {
		return 0, fmt.Errorf("%w: %s and %s both match at offset %d", ErrAmbiguousMatch, bestPat, dup, best.Start)
	}
	if !found {
		if s.OrEOF {
			return len(text), nil
		}
		return 0, fmt.Errorf("%w: no sibling marker after offset %d", ErrNotFound, m.End)
	}
	return best.Start, nil
}

// Explicit ends a section at an end marker. The marker is excluded unless
// Inclusive is set.
type Explicit struct {
	Pattern   Matcher
	Inclusive bool
}

func (e Explicit) FindEnd(text string, m Match) (int, error) {
	hit, ok := e.Pattern.Find(text, m.End)
	if !ok {
		return 0, fmt.Errorf("%w: end marker %s", ErrNotFound, e.Pattern)
	}
	if e.Inclusive {
		return hit.End, nil
	}
	return hit.Start, nil
}

// Locate finds the first section whose start marker matches at or after from.
// A nil end condition makes the start match itself the section.
func Locate(text string, start Matcher, end EndCondition, from int) (Section, error) {
	m, ok := start.Find(text, from)
	if !ok {
		return Section{}, fmt.Errorf("%w: %s", ErrNotFound, start)
	}
	return bound(text, m, end)
}

// LocateAll returns every non-overlapping section in document order. An
// absent start marker yields an empty result; a missing end is an error.
func LocateAll(text string, start Matcher, end EndCondition) ([]Section, error) {
	var out []Section
	from := 0
	for from <= len(text) {
		m, ok := start.Find(text, from)
		if !ok {
			break
		}
		sec, err := bound(text, m, end)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
		next := sec.End
		if m.End > next {
			next = m.End
		}
		if next <= from || next == m.Start {
			next = m.Start + 1
		}
		from = next
	}
	return out, nil
}

func bound(text string, m Match, end EndCondition) (Section, error) {
	if end == nil {
		return Section{Start: m.Start, End: m.End, Marker: m}, nil
	}
	e, err := end.FindEnd(text, m)
	if err != nil {
		return Section{}, err
	}
	if e < m.Start {
		return Section{}, fmt.Errorf("%w: end offset %d precedes start %d", ErrNotFound, e, m.Start)
	}
	return Section{Start: m.Start, End: e, Marker: m}, nil
}
