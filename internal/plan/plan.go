// Package plan describes edit plans as plain data. Plans are loaded from
// YAML, compiled into steps with ready matchers, and validated as a whole
// before anything touches a document.
package plan

import (
	"errors"
	"fmt"

	"docpatch/internal/editor"
	"docpatch/internal/locator"
	"docpatch/internal/scanner"
)

// ErrInvalidPlan wraps every validation failure.
var ErrInvalidPlan = errors.New("invalid plan")

type Kind string

const (
	KindDelete   Kind = "delete"
	KindReplace  Kind = "replace"
	KindRename   Kind = "rename"
	KindRenumber Kind = "renumber"
)

// Plan is an ordered list of operations against one document.
type Plan struct {
	Name  string      `yaml:"name,omitempty"`
	Files []string    `yaml:"files,omitempty"`
	Steps []Operation `yaml:"steps"`
}

// Operation is one edit as written in a plan file. Patterns use the
// locator syntax: "re:", "glob:", "lit:" or a bare literal.
type Operation struct {
	Name string `yaml:"name,omitempty"`
	Op   Kind   `yaml:"op"`

	// Start is the section's start marker (delete/replace) or the marker to
	// relabel (rename).
	Start string `yaml:"start,omitempty"`

	// At most one end condition. None means the start match is the section.
	Until      []string  `yaml:"until,omitempty"`
	OrEOF      bool      `yaml:"or_eof,omitempty"`
	End        string    `yaml:"end,omitempty"`
	IncludeEnd bool      `yaml:"include_end,omitempty"`
	Balanced   *Balanced `yaml:"balanced,omitempty"`

	Text   string `yaml:"text,omitempty"`
	To     string `yaml:"to,omitempty"`
	Family string `yaml:"family,omitempty"`
	From   *int   `yaml:"from,omitempty"`

	All      bool   `yaml:"all,omitempty"`
	Required bool   `yaml:"required,omitempty"`
	Seam     string `yaml:"seam,omitempty"`
}

// Balanced configures a depth scan as the end condition. Preset
// "conditional" selects the JSX conditional-render scanner.
type Balanced struct {
	Preset   string `yaml:"preset,omitempty"`
	Open     string `yaml:"open,omitempty"`
	Close    string `yaml:"close,omitempty"`
	Brackets bool   `yaml:"brackets,omitempty"`
	Quotes   bool   `yaml:"quotes,omitempty"`
}

// Step is a compiled operation.
type Step struct {
	Index    int
	Name     string
	Kind     Kind
	Start    locator.Matcher
	End      locator.EndCondition
	Text     string
	Label    string
	Family   locator.Matcher
	From     int
	HasFrom  bool
	All      bool
	Required bool
	Seam     editor.Seam
}

// Title is the step's name, or a generated one when the plan gave none.
func (s Step) Title() string {
	if s.Name != "" {
		return s.Name
	}
	target := s.Start
	if s.Kind == KindRenumber {
		target = s.Family
	}
	if target == nil {
		return fmt.Sprintf("#%d %s", s.Index+1, s.Kind)
	}
	return fmt.Sprintf("#%d %s %s", s.Index+1, s.Kind, target)
}

// Compile validates every operation and returns the compiled steps. It
// fails on the first invalid operation, before any step could run.
func (p *Plan) Compile(defaultSeam editor.Seam) ([]Step, error) {
	steps := make([]Step, 0, len(p.Steps))
	for i, op := range p.Steps {
		st, err := op.compile(i, defaultSeam)
		if err != nil {
			name := op.Name
			if name == "" {
				name = string(op.Op)
			}
			return nil, fmt.Errorf("%w: step %d (%s): %v", ErrInvalidPlan, i+1, name, err)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func (op Operation) compile(i int, defaultSeam editor.Seam) (Step, error) {
	st := Step{Index: i, Name: op.Name, Kind: op.Op, All: op.All, Required: op.Required, Text: op.Text, Label: op.To}

	ends := 0
	for _, set := range []bool{len(op.Until) > 0, op.End != "", op.Balanced != nil} {
		if set {
			ends++
		}
	}
	if ends > 1 {
		return st, errors.New("until, end and balanced are mutually exclusive")
	}
	if op.Seam != "" && op.Op != KindDelete {
		return st, errors.New("seam only applies to delete")
	}

	var err error
	switch op.Op {
	case KindDelete, KindReplace:
		if op.Start == "" {
			return st, errors.New("start pattern is required")
		}
		if st.Start, err = locator.ParsePattern(op.Start); err != nil {
			return st, err
		}
		if st.End, err = op.endCondition(); err != nil {
			return st, err
		}
		if op.Op == KindDelete {
			if op.Text != "" {
				return st, errors.New("delete takes no text")
			}
			if st.Seam, err = editor.ParseSeam(op.Seam, defaultSeam); err != nil {
				return st, err
			}
		}
	case KindRename:
		if op.Start == "" || op.To == "" {
			return st, errors.New("rename needs start and to")
		}
		if ends > 0 {
			return st, errors.New("rename takes no end condition")
		}
		if st.Start, err = locator.ParsePattern(op.Start); err != nil {
			return st, err
		}
		if !labeled(st.Start) {
			return st, errors.New("rename needs a re: pattern with a label group")
		}
	case KindRenumber:
		if op.Family == "" {
			return st, errors.New("renumber needs a family pattern")
		}
		if op.Start != "" || ends > 0 || op.All {
			return st, errors.New("renumber only takes family and from")
		}
		if st.Family, err = locator.ParsePattern(op.Family); err != nil {
			return st, err
		}
		if !labeled(st.Family) {
			return st, errors.New("renumber needs a re: family pattern with a number group")
		}
		if op.From != nil {
			if *op.From < 0 {
				return st, errors.New("from must not be negative")
			}
			st.From, st.HasFrom = *op.From, true
		}
	case "":
		return st, errors.New("op is required")
	default:
		return st, fmt.Errorf("unknown op %q", op.Op)
	}
	return st, nil
}

// labeled reports whether m's matches carry a label token. Literals and
// wildcards never do.
func labeled(m locator.Matcher) bool {
	r, ok := m.(*locator.Regexp)
	return ok && r.Labeled()
}

func (op Operation) endCondition() (locator.EndCondition, error) {
	switch {
	case len(op.Until) > 0:
		sib := locator.Siblings{OrEOF: op.OrEOF}
		for _, u := range op.Until {
			m, err := locator.ParsePattern(u)
			if err != nil {
				return nil, err
			}
			sib.Patterns = append(sib.Patterns, m)
		}
		return sib, nil
	case op.End != "":
		m, err := locator.ParsePattern(op.End)
		if err != nil {
			return nil, err
		}
		return locator.Explicit{Pattern: m, Inclusive: op.IncludeEnd}, nil
	case op.Balanced != nil:
		return op.Balanced.scanner()
	}
	if op.OrEOF || op.IncludeEnd {
		return nil, errors.New("or_eof/include_end need until/end")
	}
	return nil, nil
}

func (b Balanced) scanner() (scanner.Scanner, error) {
	switch b.Preset {
	case "conditional":
		if b.Open != "" || b.Close != "" {
			return scanner.Scanner{}, errors.New("preset and open/close are mutually exclusive")
		}
		s := scanner.Conditional()
		s.Quotes = b.Quotes
		return s, nil
	case "":
	default:
		return scanner.Scanner{}, fmt.Errorf("unknown balanced preset %q", b.Preset)
	}
	if b.Open == "" || b.Close == "" {
		return scanner.Scanner{}, errors.New("balanced needs open and close")
	}
	open, err := locator.ParsePattern(b.Open)
	if err != nil {
		return scanner.Scanner{}, err
	}
	cl, err := locator.ParsePattern(b.Close)
	if err != nil {
		return scanner.Scanner{}, err
	}
	return scanner.Scanner{Open: open, Close: cl, Brackets: b.Brackets, Quotes: b.Quotes}, nil
}
