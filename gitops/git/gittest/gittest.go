// Package gittest builds throwaway git repositories for
// tests.
package gittest

import (
	"context"
	"os"
	oe "os/exec"
	"path/filepath"
	"testing"
)

// InitRepo creates a git repository in dir with one empty
// initial commit. Git hooks are disabled to avoid
// interference from pre-commit hooks.
func InitRepo(tb testing.TB, dir string) {
	tb.Helper()

	cmds := [][]string{
		{"init", "-b", "main"},
		{"config", "user.email", "test@test.com"},
		{"config", "user.name", "Test"},
		{"config", "commit.gpgsign", "false"},
		// Disable hooks so pre-commit scanners do
		// not interfere with tests.
		{"config", "core.hooksPath", "/dev/null"},
		{"commit", "--allow-empty", "-m", "initial"},
	}

	for _, args := range cmds {
		Git(tb, dir, args...)
	}
}

// CommitFiles writes files (slash-separated path to
// content) into dir, stages them and commits.
func CommitFiles(
	tb testing.TB,
	dir string,
	files map[string]string,
) {
	tb.Helper()

	for rel, content := range files {
		WriteFile(tb, dir, rel, content)
		Git(tb, dir, "add", "--", rel)
	}

	Git(tb, dir, "commit", "-q", "-m", "add files")
}

// WriteFile writes content to the slash-separated path rel
// under dir, creating parent directories.
func WriteFile(tb testing.TB, dir, rel, content string) {
	tb.Helper()

	fp := filepath.Join(dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(fp), 0o750); err != nil {
		tb.Fatalf("mkdir %s: %v", rel, err)
	}

	//nolint:gosec // test file
	if err := os.WriteFile(fp, []byte(content), 0o644); err != nil {
		tb.Fatalf("write %s: %v", rel, err)
	}
}

// Git runs a git command in dir and returns its combined
// output. The test fails when the command fails.
func Git(tb testing.TB, dir string, args ...string) string {
	tb.Helper()

	//nolint:gosec // test helper
	cmd := oe.CommandContext(context.Background(), "git", args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf("git %v failed: %s: %v", args, string(out), err)
	}

	return string(out)
}
