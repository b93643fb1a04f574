package rewriter

import (
	"os"
	"path/filepath"
	"testing"

	"docpatch/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit_KeepsModeAndLineEnding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "App.tsx")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb\r\n"), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, document.CRLF, doc.LineEnding)

	require.NoError(t, Commit(path, doc.WithText("a\nc\n")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nc\r\n", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestCommit_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.txt")
	require.NoError(t, Commit(path, document.Document{Text: "x\n", LineEnding: document.LF}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(got))
}

func TestCommit_MissingDir(t *testing.T) {
	err := Commit(filepath.Join(t.TempDir(), "nope", "f.txt"), document.Document{Text: "x"})
	assert.ErrorIs(t, err, ErrIO)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.tsx"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
