package locator

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Match is one occurrence of a marker pattern. Label spans the pattern's
// number/label token when it has one, otherwise both label offsets are -1.
type Match struct {
	Start      int
	End        int
	Text       string
	LabelStart int
	LabelEnd   int
}

// Label returns the captured number/label token, or "" if there is none.
func (m Match) Label() string {
	if m.LabelStart < 0 {
		return ""
	}
	return m.Text[m.LabelStart-m.Start : m.LabelEnd-m.Start]
}

// HasLabel reports whether the marker carries a number/label token.
func (m Match) HasLabel() bool {
	return m.LabelStart >= 0
}

// Matcher finds marker occurrences. Implementations are opaque to the engine.
type Matcher interface {
	// Find returns the first match starting at or after from.
	Find(text string, from int) (Match, bool)
	// FindAll returns every non-overlapping match starting at or after from.
	FindAll(text string, from int) []Match
	String() string
}

// Literal matches an exact substring.
type Literal string

func (l Literal) Find(text string, from int) (Match, bool) {
	if from > len(text) || l == "" {
		return Match{}, false
	}
	i := strings.Index(text[from:], string(l))
	if i < 0 {
		return Match{}, false
	}
	start := from + i
	return Match{Start: start, End: start + len(l), Text: string(l), LabelStart: -1, LabelEnd: -1}, true
}

func (l Literal) FindAll(text string, from int) []Match {
	var out []Match
	for {
		m, ok := l.Find(text, from)
		if !ok {
			return out
		}
		out = append(out, m)
		from = m.End
	}
}

func (l Literal) String() string { return "lit:" + string(l) }

// Regexp matches an RE2 expression. A group named "n" or "label", or else
// group 1, is the marker's label token.
type Regexp struct {
	re    *regexp.Regexp
	group int
	src   string
}

// NewRegexp compiles expr into a Regexp matcher.
func NewRegexp(expr string) (*Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return newRegexp(re, "re:"+expr), nil
}

// MustRegexp is NewRegexp for package-level patterns and tests.
func MustRegexp(expr string) *Regexp {
	r, err := NewRegexp(expr)
	if err != nil {
		panic(err)
	}
	return r
}

func newRegexp(re *regexp.Regexp, src string) *Regexp {
	group := 0
	if re.NumSubexp() > 0 {
		group = 1
	}
	for _, name := range []string{"n", "label"} {
		if i := re.SubexpIndex(name); i > 0 {
			group = i
			break
		}
	}
	return &Regexp{re: re, group: group, src: src}
}

// Find and FindAll run the expression over the whole text and drop matches
// that start before from, so ^, $ and \b see the real surrounding context.
func (r *Regexp) Find(text string, from int) (Match, bool) {
	if from > len(text) {
		return Match{}, false
	}
	if from == 0 {
		loc := r.re.FindStringSubmatchIndex(text)
		if loc == nil {
			return Match{}, false
		}
		return r.toMatch(text, loc), true
	}
	for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] >= from {
			return r.toMatch(text, loc), true
		}
	}
	return Match{}, false
}

func (r *Regexp) FindAll(text string, from int) []Match {
	if from > len(text) {
		return nil
	}
	var out []Match
	for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] >= from {
			out = append(out, r.toMatch(text, loc))
		}
	}
	return out
}

func (r *Regexp) toMatch(text string, loc []int) Match {
	m := Match{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]], LabelStart: -1, LabelEnd: -1}
	if r.group > 0 && loc[2*r.group] >= 0 {
		m.LabelStart = loc[2*r.group]
		m.LabelEnd = loc[2*r.group+1]
	}
	return m
}

// Labeled reports whether matches carry a number/label token.
func (r *Regexp) Labeled() bool { return r.group > 0 }

func (r *Regexp) String() string { return r.src }

// Wildcard compiles a glob-style pattern where * matches any run of
// characters within a line and ? matches one character.
func Wildcard(glob string) (*Regexp, error) {
	if glob == "" {
		return nil, fmt.Errorf("%w: empty wildcard", ErrInvalidPattern)
	}
	var sb strings.Builder
	for _, r := range glob {
		switch r {
		case '*':
			sb.WriteString(`[^\n]*?`)
		case '?':
			sb.WriteString(`[^\n]`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return newRegexp(re, "glob:"+glob), nil
}

// compiled caches parsed patterns. A plan applied across a tree compiles
// the same patterns once per file; matchers are immutable and safe to share.
var compiled, _ = lru.New[string, Matcher](512)

// ParsePattern turns a plan pattern string into a Matcher. Prefixes select
// the flavour: "re:" regular expression, "glob:" wildcard, "lit:" literal.
// Anything else is a literal.
func ParsePattern(s string) (Matcher, error) {
	if m, ok := compiled.Get(s); ok {
		return m, nil
	}
	m, err := parsePattern(s)
	if err != nil {
		return nil, err
	}
	compiled.Add(s, m)
	return m, nil
}

func parsePattern(s string) (Matcher, error) {
	switch {
	case strings.HasPrefix(s, "re:"):
		if len(s) == len("re:") {
			return nil, fmt.Errorf("%w: empty regular expression", ErrInvalidPattern)
		}
		return NewRegexp(s[len("re:"):])
	case strings.HasPrefix(s, "glob:"):
		return Wildcard(s[len("glob:"):])
	case strings.HasPrefix(s, "lit:"):
		s = s[len("lit:"):]
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty literal", ErrInvalidPattern)
	}
	return Literal(s), nil
}
