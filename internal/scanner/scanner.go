// Package scanner finds the end of a bracketed or guarded block by tracking
// nesting depth, for sections that no sibling marker reliably bounds.
package scanner

import (
	"errors"
	"fmt"

	"docpatch/internal/locator"
)

// ErrMalformed is returned when a block is still open at the end of the
// document. The source no longer has the shape the plan assumes.
var ErrMalformed = errors.New("unbalanced block")

// Scanner pairs an open token with a close token. Tokens may be multi-character
// patterns, e.g. a conditional guard "{x && (" closed by ")}".
//
// With Brackets set, plain (), [] and {} are tracked too, and a close token
// only counts when the innermost open frame is one of our own open tokens.
// That keeps an inline "{() => f(x)}" from closing a guard early.
// With Quotes set, delimiters inside '...', "..." and `...` are ignored.
type Scanner struct {
	Open     locator.Matcher
	Close    locator.Matcher
	Brackets bool
	Quotes   bool
}

// ScanBalanced counts literal open/close tokens from start and returns the
// offset just past the close that brings depth back to zero.
func ScanBalanced(text string, start int, open, close string) (int, error) {
	return Scanner{Open: locator.Literal(open), Close: locator.Literal(close)}.Scan(text, start)
}

// Conditional returns a scanner for JSX-style conditional render blocks:
// "{cond && (" ... ")}", with plain brackets tracked.
func Conditional() Scanner {
	return Scanner{
		Open:     locator.MustRegexp(`\{[^{}]*?&&\s*\(`),
		Close:    locator.MustRegexp(`\)\s*\}`),
		Brackets: true,
	}
}

type frame struct {
	guard  bool
	closer byte
}

// Scan runs the depth scan starting at start, which must lie on or before
// the first open token.
func (s Scanner) Scan(text string, start int) (int, error) {
	if start < 0 || start > len(text) {
		return 0, fmt.Errorf("%w: start offset %d out of range", ErrMalformed, start)
	}
	opens := newTokens(s.Open, text, start)
	closes := newTokens(s.Close, text, start)

	var stack []frame
	opened := -1
	for i := start; i < len(text); {
		if end, ok := opens.at(text, i); ok {
			if opened < 0 {
				opened = i
			}
			stack = append(stack, frame{guard: true})
			i = end
			continue
		}
		if len(stack) == 0 {
			i++
			continue
		}
		if stack[len(stack)-1].guard {
			if end, ok := closes.at(text, i); ok {
				stack = stack[:len(stack)-1]
				i = end
				if len(stack) == 0 {
					return i, nil
				}
				continue
			}
		}

		c := text[i]
		if s.Quotes && (c == '\'' || c == '"' || c == '`') {
			end := skipQuoted(text, i)
			if end < 0 {
				return 0, fmt.Errorf("%w: unterminated %c quote at offset %d", ErrMalformed, c, i)
			}
			i = end
			continue
		}
		if s.Brackets {
			switch c {
			case '(':
				stack = append(stack, frame{closer: ')'})
			case '[':
				stack = append(stack, frame{closer: ']'})
			case '{':
				stack = append(stack, frame{closer: '}'})
			case ')', ']', '}':
				// Stray closers are text as far as we are concerned.
				if top := stack[len(stack)-1]; !top.guard && top.closer == c {
					stack = stack[:len(stack)-1]
				}
			}
		}
		i++
	}

	if opened < 0 {
		return 0, fmt.Errorf("%w: no %s after offset %d", locator.ErrNotFound, s.Open, start)
	}
	return 0, fmt.Errorf("%w: block opened at offset %d still has depth %d at end of document", ErrMalformed, opened, len(stack))
}

// FindEnd makes a Scanner usable as a locator end condition. The scan starts
// at the section's start marker.
func (s Scanner) FindEnd(text string, m locator.Match) (int, error) {
	return s.Scan(text, m.Start)
}

// skipQuoted returns the offset just past the quote opened at i, or -1.
func skipQuoted(text string, i int) int {
	q := text[i]
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case q:
			return j + 1
		case '\n':
			if q != '`' {
				return -1
			}
		}
	}
	return -1
}

// tokens answers "does the token match at offset i". Literals are checked in
// place; other matchers are resolved up front.
type tokens struct {
	lit   locator.Literal
	isLit bool
	ends  map[int]int
}

func newTokens(m locator.Matcher, text string, from int) tokens {
	if lit, ok := m.(locator.Literal); ok {
		return tokens{lit: lit, isLit: true}
	}
	t := tokens{ends: make(map[int]int)}
	for _, hit := range m.FindAll(text, from) {
		if hit.End > hit.Start {
			t.ends[hit.Start] = hit.End
		}
	}
	return t
}

func (t tokens) at(text string, i int) (int, bool) {
	if t.isLit {
		if t.lit != "" && len(text)-i >= len(t.lit) && text[i:i+len(t.lit)] == string(t.lit) {
			return i + len(t.lit), true
		}
		return 0, false
	}
	end, ok := t.ends[i]
	return end, ok
}
