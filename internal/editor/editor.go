// Package editor turns located sections into text edits and applies batches
// of them computed against a single snapshot.
package editor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"docpatch/internal/locator"
)

var (
	// ErrOverlap is returned when two non-deletion edits touch the same bytes.
	ErrOverlap = errors.New("overlapping edits")

	// ErrInvalidRange is returned for offsets outside the text.
	ErrInvalidRange = errors.New("invalid edit range")

	// ErrNoLabel is returned when renaming a marker whose pattern has no
	// number/label group.
	ErrNoLabel = errors.New("marker has no label token")
)

// Seam controls how the text around a deleted range is re-joined.
type Seam string

const (
	// SeamNone removes the range verbatim.
	SeamNone Seam = "none"
	// SeamBlankLine collapses the whitespace around the range into exactly
	// one blank line.
	SeamBlankLine Seam = "blank-line"
)

// ParseSeam accepts "", "none" and "blank-line". The empty string maps to def.
func ParseSeam(s string, def Seam) (Seam, error) {
	switch Seam(s) {
	case "":
		return def, nil
	case SeamNone, SeamBlankLine:
		return Seam(s), nil
	}
	return "", fmt.Errorf("unknown seam %q", s)
}

// Edit replaces [Start, End) with Text. An edit with empty Text is a deletion.
type Edit struct {
	Start int
	End   int
	Text  string
	Seam  Seam
}

// DeleteEdit describes removing sec.
func DeleteEdit(sec locator.Section, seam Seam) Edit {
	return Edit{Start: sec.Start, End: sec.End, Seam: seam}
}

// ReplaceEdit describes substituting sec with newText. newText is inserted
// as-is; it must already be balanced.
func ReplaceEdit(sec locator.Section, newText string) Edit {
	return Edit{Start: sec.Start, End: sec.End, Text: newText}
}

// RenameEdit describes rewriting only the marker's label token.
func RenameEdit(marker locator.Match, label string) (Edit, error) {
	if !marker.HasLabel() {
		return Edit{}, fmt.Errorf("%w: %q", ErrNoLabel, marker.Text)
	}
	return Edit{Start: marker.LabelStart, End: marker.LabelEnd, Text: label}, nil
}

// Delete returns text without sec.
func Delete(text string, sec locator.Section, seam Seam) (string, error) {
	return Apply(text, []Edit{DeleteEdit(sec, seam)})
}

// Replace returns text with sec substituted by newText.
func Replace(text string, sec locator.Section, newText string) (string, error) {
	return Apply(text, []Edit{ReplaceEdit(sec, newText)})
}

// RenameMarker returns text with the marker's label token set to label.
func RenameMarker(text string, marker locator.Match, label string) (string, error) {
	e, err := RenameEdit(marker, label)
	if err != nil {
		return "", err
	}
	return Apply(text, []Edit{e})
}

// Apply applies edits that were all computed against text. The result does
// not depend on the order of edits: touching or overlapping deletions are
// merged, identical edits collapse, and any other overlap is an error.
func Apply(text string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	merged, err := normalize(text, edits)
	if err != nil {
		return "", err
	}

	for i, e := range merged {
		if e.Text != "" || e.Seam != SeamBlankLine {
			continue
		}
		lo, hi := 0, len(text)
		if i > 0 {
			lo = merged[i-1].End
		}
		if i+1 < len(merged) {
			hi = merged[i+1].Start
		}
		merged[i] = seamEdit(text, e, lo, hi)
	}

	// Building left to right from the snapshot is the same as applying the
	// edits in descending offset order.
	var sb strings.Builder
	sb.Grow(len(text))
	prev := 0
	for _, e := range merged {
		sb.WriteString(text[prev:e.Start])
		sb.WriteString(e.Text)
		prev = e.End
	}
	sb.WriteString(text[prev:])
	return sb.String(), nil
}

func normalize(text string, edits []Edit) ([]Edit, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(text) {
			return nil, fmt.Errorf("%w: [%d, %d) in text of length %d", ErrInvalidRange, e.Start, e.End, len(text))
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := sorted[:1]
	for _, e := range sorted[1:] {
		last := &out[len(out)-1]
		switch {
		case e == *last:
		case e.Text == "" && last.Text == "" && e.Start <= last.End:
			if e.End > last.End {
				last.End = e.End
			}
			if last.Seam != SeamBlankLine {
				last.Seam = e.Seam
			}
		case e.Start < last.End:
			return nil, fmt.Errorf("%w: [%d, %d) and [%d, %d)", ErrOverlap, last.Start, last.End, e.Start, e.End)
		default:
			out = append(out, e)
		}
	}
	return out, nil
}

// seamEdit widens a deletion over the surrounding whitespace, staying within
// [lo, hi), and replaces it with a single blank line. The content after the
// cut keeps the indentation of the line it starts on.
func seamEdit(text string, e Edit, lo, hi int) Edit {
	start, end := e.Start, e.End
	for start > lo && isSpace(text[start-1]) {
		start--
	}
	for end < hi && isSpace(text[end]) {
		end++
	}

	indent := ""
	if ls := strings.LastIndexByte(text[:end], '\n') + 1; ls > start && strings.TrimLeft(text[ls:end], " \t") == "" {
		indent = text[ls:end]
	}

	var joint string
	switch {
	case start == 0 && end == len(text):
	case start == 0:
		joint = indent
	case end == len(text):
		joint = "\n"
	default:
		joint = "\n\n" + indent
	}
	return Edit{Start: start, End: end, Text: joint}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
