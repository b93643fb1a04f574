package document

import (
	"bytes"
	"strings"
)

// LineEnding is the newline sequence a document is written back with.
type LineEnding string

const (
	LF   LineEnding = "\n"
	CRLF LineEnding = "\r\n"
)

// String returns a short name for reports.
func (le LineEnding) String() string {
	if le == CRLF {
		return "crlf"
	}
	return "lf"
}

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Document is an in-memory text document. Text is always LF-normalized so
// patterns never have to care about carriage returns; the original style is
// restored by Bytes.
type Document struct {
	Text       string
	LineEnding LineEnding
	BOM        bool
}

// Parse builds a Document from raw file bytes.
func Parse(raw []byte) Document {
	doc := Document{LineEnding: DetectLineEnding(raw)}
	if bytes.HasPrefix(raw, bomUTF8) {
		doc.BOM = true
		raw = raw[len(bomUTF8):]
	}
	doc.Text = strings.ReplaceAll(string(raw), "\r\n", "\n")
	return doc
}

// Bytes renders the document with its line-ending style applied uniformly.
func (d Document) Bytes() []byte {
	text := d.Text
	if d.LineEnding == CRLF {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	var buf bytes.Buffer
	buf.Grow(len(text) + len(bomUTF8))
	if d.BOM {
		buf.Write(bomUTF8)
	}
	buf.WriteString(text)
	return buf.Bytes()
}

// WithText returns a copy of d holding text.
func (d Document) WithText(text string) Document {
	d.Text = text
	return d
}

// Lines counts lines the way an editor would: a trailing newline does not
// start a new line.
func (d Document) Lines() int {
	if d.Text == "" {
		return 0
	}
	n := strings.Count(d.Text, "\n")
	if !strings.HasSuffix(d.Text, "\n") {
		n++
	}
	return n
}

// DetectLineEnding returns the dominant line ending in content. Ties and
// content without newlines default to LF.
func DetectLineEnding(content []byte) LineEnding {
	var lf, crlf int
	for i := 0; i < len(content); i++ {
		if content[i] != '\n' {
			continue
		}
		if i > 0 && content[i-1] == '\r' {
			crlf++
		} else {
			lf++
		}
	}
	if crlf > lf {
		return CRLF
	}
	return LF
}

// LineAt returns the 1-based line number containing offset.
func LineAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	return strings.Count(text[:offset], "\n") + 1
}
