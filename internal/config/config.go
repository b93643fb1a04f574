package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "docpatch.yaml"

type Config struct {
	Journal struct {
		Path    string `yaml:"path"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"journal"`
	Logging struct {
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"logging"`
	Patch struct {
		SyntaxGuard bool   `yaml:"syntax_guard"`
		DefaultSeam string `yaml:"default_seam"` // none or blank-line
	} `yaml:"patch"`
	Crawl struct {
		Include []string `yaml:"include"`
		Ignore  []string `yaml:"ignore"`
	} `yaml:"crawl"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Journal.Path = ".docpatch/journal.db"
	cfg.Journal.Enabled = true
	cfg.Logging.Level = "info"
	cfg.Patch.SyntaxGuard = true
	cfg.Patch.DefaultSeam = "blank-line"
	cfg.Crawl.Ignore = []string{".git", "node_modules", "vendor"}
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config on top of the defaults
	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if journal := os.Getenv("DOCPATCH_JOURNAL"); journal != "" {
		cfg.Journal.Path = journal
	}
	if level := os.Getenv("DOCPATCH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if guard := os.Getenv("DOCPATCH_SYNTAX_GUARD"); guard != "" {
		on, err := strconv.ParseBool(guard)
		if err != nil {
			return nil, fmt.Errorf("DOCPATCH_SYNTAX_GUARD: %w", err)
		}
		cfg.Patch.SyntaxGuard = on
	}

	return cfg, nil
}
