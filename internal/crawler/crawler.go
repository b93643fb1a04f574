package crawler

import (
	"io/fs"
	"path/filepath"
)

// Crawler scans a directory for files a plan should be applied to.
type Crawler struct {
	include []string
	ignored []string
}

// NewCrawler creates a new crawler instance. include holds glob patterns
// matched against the file name and the slash-separated path relative to
// the root; an empty list accepts every file. ignore names directories that
// are never entered.
func NewCrawler(include, ignore []string) *Crawler {
	if ignore == nil {
		ignore = []string{".git", "vendor", "node_modules"}
	}
	return &Crawler{include: include, ignored: ignore}
}

// ScanProject walks the root directory and calls onFile for every matching
// file, in lexical order. An error from onFile stops the walk.
func (c *Crawler) ScanProject(root string, onFile func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if !c.matches(d.Name(), filepath.ToSlash(rel)) {
			return nil
		}
		return onFile(path)
	})
}

func (c *Crawler) matches(name, rel string) bool {
	if len(c.include) == 0 {
		return true
	}
	for _, pattern := range c.include {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
