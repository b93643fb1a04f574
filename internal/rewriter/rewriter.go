// Package rewriter applies an edit plan to a document in memory and commits
// the result to disk only after every step has succeeded.
package rewriter

import (
	"errors"
	"fmt"

	"docpatch/internal/document"
	"docpatch/internal/editor"
	"docpatch/internal/locator"
	"docpatch/internal/plan"
	"docpatch/internal/renumber"
)

// StepError names the plan step that aborted an apply.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Status string

const (
	StatusApplied  Status = "applied"
	StatusNotFound Status = "not-found"
	StatusFailed   Status = "failed"
)

// StepResult is the outcome of one step. Matches counts the sections or
// markers the step acted on.
type StepResult struct {
	Index   int
	Name    string
	Kind    plan.Kind
	Status  Status
	Matches int
	Err     error
}

// Report carries what a caller needs to describe a run.
type Report struct {
	Steps       []StepResult
	BytesBefore int
	BytesAfter  int
	LinesBefore int
	LinesAfter  int
	LineEnding  document.LineEnding
	Changed     bool
}

// Failed returns the step that aborted the run, if any.
func (r *Report) Failed() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return s, true
		}
	}
	return StepResult{}, false
}

// Validator vets the rendered output before it is accepted.
type Validator interface {
	Validate(before, after []byte) error
}

type options struct {
	seam      editor.Seam
	validator Validator
}

type Option func(*options)

// WithDefaultSeam sets the seam for delete steps that do not name one.
func WithDefaultSeam(s editor.Seam) Option {
	return func(o *options) { o.seam = s }
}

// WithValidator runs v on the result; a validation error aborts the plan.
func WithValidator(v Validator) Option {
	return func(o *options) { o.validator = v }
}

// Apply runs p against doc. Delete, replace and rename steps are all
// resolved against the original text and applied as one batch; renumber
// steps then run in plan order on the edited text. On any failure the
// original document is returned with the partial report and the error.
func Apply(doc document.Document, p *plan.Plan, opts ...Option) (document.Document, *Report, error) {
	o := options{seam: editor.SeamBlankLine}
	for _, opt := range opts {
		opt(&o)
	}

	report := &Report{
		BytesBefore: len(doc.Bytes()),
		LinesBefore: doc.Lines(),
		LineEnding:  doc.LineEnding,
	}
	steps, err := p.Compile(o.seam)
	if err != nil {
		return doc, report, err
	}

	fail := func(st plan.Step, res StepResult, err error) (document.Document, *Report, error) {
		res.Status, res.Err = StatusFailed, err
		report.Steps = append(report.Steps, res)
		return doc, report, &StepError{Index: st.Index, Name: st.Title(), Err: err}
	}

	snapshot := doc.Text
	var (
		edits     []editor.Edit
		renumbers []renumber.Family
		renumIdx  []int
	)
	for _, st := range steps {
		res := StepResult{Index: st.Index, Name: st.Title(), Kind: st.Kind}

		if st.Kind == plan.KindRenumber {
			from, ok := st.From, st.HasFrom
			if !ok {
				first, found, err := renumber.First(snapshot, st.Family)
				if err != nil {
					return fail(st, res, err)
				}
				from, ok = first, found
			}
			if !ok {
				if st.Required {
					return fail(st, res, fmt.Errorf("%w: no %s markers", locator.ErrNotFound, st.Family))
				}
				res.Status = StatusNotFound
				report.Steps = append(report.Steps, res)
				continue
			}
			renumbers = append(renumbers, renumber.Family{Marker: st.Family, Start: from})
			renumIdx = append(renumIdx, len(report.Steps))
			res.Status = StatusApplied
			report.Steps = append(report.Steps, res)
			continue
		}

		stepEdits, err := resolve(snapshot, st)
		if errors.Is(err, locator.ErrNotFound) && !st.Required {
			res.Status = StatusNotFound
			report.Steps = append(report.Steps, res)
			continue
		}
		if err != nil {
			return fail(st, res, err)
		}
		// Check against everything planned so far, so an overlap is pinned
		// on the step that introduced it.
		if _, err := editor.Apply(snapshot, append(append([]editor.Edit(nil), edits...), stepEdits...)); err != nil {
			return fail(st, res, err)
		}
		edits = append(edits, stepEdits...)
		res.Status, res.Matches = StatusApplied, len(stepEdits)
		report.Steps = append(report.Steps, res)
	}

	text, err := editor.Apply(snapshot, edits)
	if err != nil {
		return doc, report, err
	}
	for i, fam := range renumbers {
		var changes []renumber.Change
		text, changes, err = renumber.Renumber(text, fam)
		res := &report.Steps[renumIdx[i]]
		if err != nil {
			res.Status, res.Err = StatusFailed, err
			return doc, report, &StepError{Index: res.Index, Name: res.Name, Err: err}
		}
		res.Matches = len(changes)
	}

	out := doc.WithText(text)
	if o.validator != nil {
		if err := o.validator.Validate(doc.Bytes(), out.Bytes()); err != nil {
			return doc, report, err
		}
	}

	report.BytesAfter = len(out.Bytes())
	report.LinesAfter = out.Lines()
	report.Changed = text != doc.Text
	return out, report, nil
}

// resolve locates a step's sections in text and turns them into edits. An
// empty result is reported as locator.ErrNotFound.
func resolve(text string, st plan.Step) ([]editor.Edit, error) {
	var sections []locator.Section
	if st.All {
		all, err := locator.LocateAll(text, st.Start, st.End)
		if err != nil {
			return nil, err
		}
		sections = all
	} else {
		sec, err := locator.Locate(text, st.Start, st.End, 0)
		if err != nil {
			return nil, err
		}
		sections = []locator.Section{sec}
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: %s", locator.ErrNotFound, st.Start)
	}

	edits := make([]editor.Edit, 0, len(sections))
	for _, sec := range sections {
		switch st.Kind {
		case plan.KindDelete:
			edits = append(edits, editor.DeleteEdit(sec, st.Seam))
		case plan.KindReplace:
			edits = append(edits, editor.ReplaceEdit(sec, st.Text))
		case plan.KindRename:
			e, err := editor.RenameEdit(sec.Marker, st.Label)
			if err != nil {
				return nil, err
			}
			edits = append(edits, e)
		}
	}
	return edits, nil
}
