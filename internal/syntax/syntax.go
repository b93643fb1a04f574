// Package syntax parses documents with tree-sitter to reject patches that
// leave a previously well-formed source file broken.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrSyntax is returned when the patched output no longer parses.
var ErrSyntax = errors.New("patched output has syntax errors")

// Issue locates the first error node of a parse.
type Issue struct {
	Line    int
	Column  int
	Missing bool
	Snippet string
}

func (i Issue) String() string {
	kind := "unexpected"
	if i.Missing {
		kind = "missing"
	}
	return fmt.Sprintf("%d:%d: %s %q", i.Line, i.Column, kind, i.Snippet)
}

// Checker parses one language.
type Checker struct {
	name string
	lang *sitter.Language
}

// New returns a checker for a language name: tsx, typescript, javascript or go.
func New(name string) (*Checker, error) {
	var lang *sitter.Language
	switch name {
	case "tsx":
		lang = tsx.GetLanguage()
	case "typescript":
		lang = typescript.GetLanguage()
	case "javascript":
		lang = javascript.GetLanguage()
	case "go":
		lang = golang.GetLanguage()
	default:
		return nil, fmt.Errorf("unsupported language: %s", name)
	}
	return &Checker{name: name, lang: lang}, nil
}

// ForPath picks a checker by file extension. ok is false for files no
// grammar is registered for.
func ForPath(path string) (*Checker, bool) {
	var name string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		name = "tsx"
	case ".ts", ".mts", ".cts":
		name = "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		// The javascript grammar accepts JSX.
		name = "javascript"
	case ".go":
		name = "go"
	default:
		return nil, false
	}
	c, err := New(name)
	if err != nil {
		return nil, false
	}
	return c, true
}

func (c *Checker) Language() string { return c.name }

// Check parses src and reports the first error node, if any.
func (c *Checker) Check(ctx context.Context, src []byte) (Issue, bool, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(c.lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return Issue{}, false, fmt.Errorf("failed to parse %s source: %w", c.name, err)
	}
	root := tree.RootNode()
	if !root.HasError() {
		return Issue{}, false, nil
	}
	n := firstError(root)
	if n == nil {
		n = root
	}
	p := n.StartPoint()
	snippet := n.Content(src)
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	if n.IsMissing() {
		snippet = n.Type()
	}
	return Issue{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Missing: n.IsMissing(), Snippet: snippet}, true, nil
}

// Validate rejects after if it has parse errors and before did not. Sources
// that were already broken are let through unchanged.
func (c *Checker) Validate(before, after []byte) error {
	ctx := context.Background()
	if _, broken, err := c.Check(ctx, before); err != nil || broken {
		return err
	}
	issue, broken, err := c.Check(ctx, after)
	if err != nil {
		return err
	}
	if broken {
		return fmt.Errorf("%w: %s at %s", ErrSyntax, c.name, issue)
	}
	return nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstError(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
