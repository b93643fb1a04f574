package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("DOCPATCH_JOURNAL", "")
	t.Setenv("DOCPATCH_LOG_LEVEL", "")
	t.Setenv("DOCPATCH_SYNTAX_GUARD", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "docpatch.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docpatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
journal:
  path: runs.db
  enabled: false
logging:
  level: debug
patch:
  default_seam: none
crawl:
  include: ["*.tsx"]
`), 0o644))

	t.Setenv("DOCPATCH_JOURNAL", "")
	t.Setenv("DOCPATCH_LOG_LEVEL", "error")
	t.Setenv("DOCPATCH_SYNTAX_GUARD", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "runs.db", cfg.Journal.Path)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.Patch.SyntaxGuard)
	assert.Equal(t, "none", cfg.Patch.DefaultSeam)
	assert.Equal(t, []string{"*.tsx"}, cfg.Crawl.Include)
	assert.Equal(t, []string{".git", "node_modules", "vendor"}, cfg.Crawl.Ignore)
}

func TestLoadConfig_BadEnv(t *testing.T) {
	t.Setenv("DOCPATCH_SYNTAX_GUARD", "maybe")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docpatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal: [unclosed"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
