package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ChangedFiles returns the files under dir that differ from baseRef in the
// working tree, as absolute paths. Deleted files are left out since there is
// nothing to patch.
func ChangedFiles(ctx context.Context, dir, baseRef string) ([]string, error) {
	top, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(top))

	output, err := run(ctx, dir, "diff", "--name-only", "--diff-filter=d", baseRef, "--", ".")
	if err != nil {
		return nil, err
	}
	return parseNames(root, output), nil
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return output, nil
}

// parseNames turns `git diff --name-only` output, which is relative to the
// repository root, into paths joined onto root.
func parseNames(root string, output []byte) []string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var paths []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, filepath.Join(root, filepath.FromSlash(line)))
	}
	return paths
}
