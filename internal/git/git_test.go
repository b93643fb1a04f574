package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNames(t *testing.T) {
	out := []byte("web/src/App.tsx\n\nweb/src/views/Visualizer.tsx\n")
	got := parseNames("/repo", out)
	assert.Equal(t, []string{
		filepath.Join("/repo", "web", "src", "App.tsx"),
		filepath.Join("/repo", "web", "src", "views", "Visualizer.tsx"),
	}, got)
}

func TestChangedFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	gitCmd := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	gitCmd("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tsx"), []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tsx"), []byte("b\n"), 0o644))
	gitCmd("add", ".")
	gitCmd("commit", "-q", "-m", "init")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tsx"), []byte("a2\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.tsx")))

	got, err := ChangedFiles(context.Background(), dir, "HEAD")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.tsx", filepath.Base(got[0]))
}
