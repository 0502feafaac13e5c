// Package applier writes model-proposed mutations to a
// working tree. Only paths the repository already tracks are
// touched; anything else is skipped with a warning.
package applier

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/byte4ever/git2gpt/mutation"
)

// Skip reasons.
const (
	ReasonUntracked = "not tracked by the repository"
	ReasonOutside   = "outside the repository root"
	ReasonGitDir    = "inside the .git directory"
	ReasonSymlink   = "below a symbolic link"
)

// Skipped is a mutation that was not applied.
type Skipped struct {
	Mutation mutation.Mutation
	Reason   string
}

// Result lists what Apply did, in input order.
type Result struct {
	Applied []mutation.Mutation
	Skipped []Skipped
}

// Applier applies mutations under Root.
type Applier struct {
	root     string
	files    map[string]struct{}
	dirs     map[string]struct{}
	allowNew bool
}

// New returns an Applier for the working tree at root.
// tracked holds the slash-separated tracked paths. When
// allowNew is true, add may create files that are not yet
// tracked as long as they stay inside root.
func New(root string, tracked []string, allowNew bool) *Applier {
	ap := &Applier{
		root:     root,
		files:    make(map[string]struct{}, len(tracked)),
		dirs:     make(map[string]struct{}),
		allowNew: allowNew,
	}

	for _, p := range tracked {
		ap.files[p] = struct{}{}

		for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
			ap.dirs[dir] = struct{}{}
		}
	}

	return ap
}

// Partition splits mutations into those Apply would apply
// (with normalized paths) and those it would skip. The
// filesystem is not touched.
func (ap *Applier) Partition(
	mutations []mutation.Mutation,
) ([]mutation.Mutation, []Skipped) {
	var (
		accepted []mutation.Mutation
		skipped  []Skipped
	)

	for _, m := range mutations {
		rel, reason := ap.check(m)
		if reason != "" {
			skipped = append(skipped, Skipped{Mutation: m, Reason: reason})

			continue
		}

		m.FilePath = rel
		accepted = append(accepted, m)
	}

	return accepted, skipped
}

// Apply applies mutations in order. Skipped mutations are
// logged and reported in the result. Apply stops at the
// first filesystem error; earlier mutations stay applied.
func (ap *Applier) Apply(
	mutations []mutation.Mutation,
) (*Result, error) {
	const errCtx = "applying mutations"

	accepted, skipped := ap.Partition(mutations)
	res := &Result{Skipped: skipped}

	for _, s := range skipped {
		slog.Warn(
			"skipping mutation",
			"action", s.Mutation.Action,
			"path", s.Mutation.FilePath,
			"reason", s.Reason,
		)
	}

	for _, m := range accepted {
		if err := ap.applyOne(m); err != nil {
			return res, fmt.Errorf("%s: %s: %w", errCtx, m, err)
		}

		slog.Info("applied mutation", "action", m.Action, "path", m.FilePath)
		res.Applied = append(res.Applied, m)
	}

	return res, nil
}

// check normalizes the mutation path and returns a skip
// reason, or "" when the mutation may be applied.
func (ap *Applier) check(m mutation.Mutation) (string, string) {
	rel, ok := normalize(m.FilePath)
	if !ok {
		return "", ReasonOutside
	}

	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return "", ReasonGitDir
	}

	if ap.belowSymlink(rel) {
		return "", ReasonSymlink
	}

	if _, ok := ap.files[rel]; ok {
		return rel, ""
	}

	switch m.Action {
	case mutation.Delete:
		if _, ok := ap.dirs[rel]; ok {
			return rel, ""
		}
	case mutation.Add:
		if ap.allowNew {
			return rel, ""
		}
	default:
	}

	return "", ReasonUntracked
}

// belowSymlink reports whether a parent directory of rel is
// a symbolic link, which would redirect writes outside root.
func (ap *Applier) belowSymlink(rel string) bool {
	dir := path.Dir(rel)
	if dir == "." {
		return false
	}

	cur := ap.root

	for _, part := range strings.Split(dir, "/") {
		cur = filepath.Join(cur, part)

		fi, err := os.Lstat(cur)
		if err != nil {
			// Missing parents are created as plain
			// directories.
			return false
		}

		if fi.Mode()&fs.ModeSymlink != 0 {
			return true
		}
	}

	return false
}

// normalize cleans a model-supplied path into a
// slash-separated path relative to the root. ok is false
// for absolute paths and paths escaping the root.
func normalize(p string) (string, bool) {
	p = strings.TrimSpace(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "./")

	if p == "" || !filepath.IsLocal(filepath.FromSlash(p)) {
		return "", false
	}

	return path.Clean(p), true
}

// applyOne performs a single accepted mutation.
func (ap *Applier) applyOne(m mutation.Mutation) error {
	abs := filepath.Join(ap.root, filepath.FromSlash(m.FilePath))

	if m.Action == mutation.Delete {
		return remove(abs)
	}

	return write(abs, m.Content)
}

// write replaces the file at abs with content, keeping the
// mode of an existing file. A symlink is never followed:
// content becomes its new target, as the snapshot showed it.
func write(abs, content string) error {
	mode := fs.FileMode(0o644)

	fi, err := os.Lstat(abs)

	switch {
	case err == nil && fi.Mode()&fs.ModeSymlink != 0:
		if err := os.Remove(abs); err != nil {
			return err
		}

		return os.Symlink(content, abs)
	case err == nil && fi.IsDir():
		return fmt.Errorf("%s is a directory", abs)
	case err == nil:
		mode = fi.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	//nolint:gosec // working tree directories are world-readable
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}

	return os.WriteFile(abs, []byte(content), mode)
}

// remove deletes a file, or a directory recursively. A
// missing path is not an error.
func remove(abs string) error {
	fi, err := os.Lstat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	if fi.IsDir() {
		return os.RemoveAll(abs)
	}

	return os.Remove(abs)
}
