package patcher

import (
	"errors"
	"strings"

	"docpatch/internal/document"
	"docpatch/internal/editor"
	"docpatch/internal/locator"
	"docpatch/internal/plan"
)

// Location is where one step of a plan would act, in 1-based lines.
type Location struct {
	Step      int
	Name      string
	Kind      plan.Kind
	StartLine int
	EndLine   int
	Start     int
	End       int
	Marker    string
}

// Locate reports the sections each step of pl would touch in doc without
// editing anything. Steps that find nothing contribute no locations; any
// other locator error aborts.
func Locate(doc document.Document, pl *plan.Plan) ([]Location, error) {
	steps, err := pl.Compile(editor.SeamNone)
	if err != nil {
		return nil, err
	}

	var out []Location
	for _, st := range steps {
		var sections []locator.Section
		switch {
		case st.Kind == plan.KindRenumber:
			for _, m := range st.Family.FindAll(doc.Text, 0) {
				sections = append(sections, locator.Section{Start: m.Start, End: m.End, Marker: m})
			}
		case st.All:
			sections, err = locator.LocateAll(doc.Text, st.Start, st.End)
		default:
			var sec locator.Section
			sec, err = locator.Locate(doc.Text, st.Start, st.End, 0)
			if err == nil {
				sections = append(sections, sec)
			}
		}
		if errors.Is(err, locator.ErrNotFound) {
			err = nil
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, sec := range sections {
			// Trailing whitespace up to the next marker is not reported.
			last := sec.End - 1
			for last > sec.Start && strings.ContainsRune(" \t\r\n", rune(doc.Text[last])) {
				last--
			}
			if last < sec.Start {
				last = sec.Start
			}
			out = append(out, Location{
				Step:      st.Index,
				Name:      st.Title(),
				Kind:      st.Kind,
				StartLine: document.LineAt(doc.Text, sec.Start),
				EndLine:   document.LineAt(doc.Text, last),
				Start:     sec.Start,
				End:       sec.End,
				Marker:    sec.Marker.Text,
			})
		}
	}
	return out, nil
}
