package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/byte4ever/git2gpt/gitops/exec"
)

// Repo is a local git working tree. Create with Open.
type Repo struct {
	// Dir is the absolute repository root (the top level of
	// the working tree).
	Dir string
}

// Open validates that dir is inside a git working tree and
// returns a Repo rooted at its top level.
func Open(ctx context.Context, dir string) (*Repo, error) {
	const op = "open"

	if dir == "" {
		dir = "."
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &RepositoryError{Dir: dir, Op: op, Err: err}
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return nil, &RepositoryError{Dir: abs, Op: op, Err: err}
	}

	if !fi.IsDir() {
		return nil, &RepositoryError{
			Dir: abs,
			Op:  op,
			Err: errors.New("not a directory"),
		}
	}

	out, err := exec.Ex(ctx, abs, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, &RepositoryError{Dir: abs, Op: op, Err: err}
	}

	top := strings.TrimSpace(out)
	if top == "" {
		// Bare repositories have no working tree.
		return nil, &RepositoryError{
			Dir: abs,
			Op:  op,
			Err: errors.New("no working tree"),
		}
	}

	slog.Debug("opened repository", "dir", top)

	return &Repo{Dir: top}, nil
}

// TrackedFiles returns the slash-separated paths of every
// file in the index, relative to the repository root, in
// git's order.
func (r *Repo) TrackedFiles(ctx context.Context) ([]string, error) {
	out, err := exec.Ex(ctx, r.Dir, "git", "ls-files", "-z")
	if err != nil {
		return nil, &RepositoryError{
			Dir: r.Dir,
			Op:  "list tracked files",
			Err: err,
		}
	}

	var files []string

	for _, p := range strings.Split(out, "\x00") {
		if p != "" {
			files = append(files, p)
		}
	}

	return files, nil
}

// Path converts a slash-separated repository path into an
// absolute filesystem path.
func (r *Repo) Path(rel string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(rel))
}

// HeadCommit returns the full hash of HEAD.
func (r *Repo) HeadCommit(ctx context.Context) (string, error) {
	out, err := exec.Ex(ctx, r.Dir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", &RepositoryError{Dir: r.Dir, Op: "rev-parse HEAD", Err: err}
	}

	return strings.TrimSpace(out), nil
}

// GetLastCommitMessage returns the most recent commit
// message on the current branch. Returns empty string
// on error.
func (r *Repo) GetLastCommitMessage(ctx context.Context) string {
	msg, err := exec.Ex(ctx, r.Dir, "git", "log", "-1", "--pretty=%B")
	if err != nil {
		return ""
	}

	return msg
}

// StageAll stages every working-tree change, including
// deletions and new files.
func (r *Repo) StageAll(ctx context.Context) error {
	if _, err := exec.Ex(ctx, r.Dir, "git", "add", "-A"); err != nil {
		return &RepositoryError{Dir: r.Dir, Op: "stage", Err: err}
	}

	return nil
}

// Commit stages all changes and commits them. Returns true
// when changes were committed, false when the tree was
// clean. Unrelated local changes present before the run are
// committed too.
func (r *Repo) Commit(ctx context.Context, message string) (bool, error) {
	const errCtx = "committing"

	if err := r.StageAll(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	clean, err := r.IsClean(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if clean {
		slog.Info("working tree clean, nothing to commit")

		return false, nil
	}

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "commit", "-q", "-m", message,
	); err != nil {
		return false, &RepositoryError{Dir: r.Dir, Op: "commit", Err: err}
	}

	return true, nil
}

// IsClean reports whether the working tree has no
// uncommitted changes.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	out, err := exec.Ex(ctx, r.Dir, "git", "status", "--porcelain")
	if err != nil {
		return false, &RepositoryError{Dir: r.Dir, Op: "status", Err: err}
	}

	return strings.TrimSpace(out) == "", nil
}
