// Package snapshot serializes the tracked files of a git
// working tree into a single JSON document.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/git2gpt/gitops/digester"
	"github.com/byte4ever/git2gpt/gitops/git"
)

// sniffLen is how many leading bytes are checked for NUL,
// matching git's own binary heuristic.
const sniffLen = 8000

// File is one tracked file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	// Binary marks content that was not embedded.
	Binary bool `json:"binary,omitempty"`
	// Digest is the SHA256 of the entry when it was read.
	Digest string `json:"-"`
}

// Snapshot is the ordered list of tracked files at the time
// it was built. It is never modified after Build returns.
type Snapshot struct {
	Files []File
}

// Build reads every tracked file of repo. Submodules and
// tracked files missing from the working tree are left out.
// No truncation is applied: large repositories give large
// snapshots.
func Build(ctx context.Context, repo *git.Repo) (*Snapshot, error) {
	const errCtx = "building snapshot"

	paths, err := repo.TrackedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	snap := &Snapshot{Files: make([]File, 0, len(paths))}

	for _, p := range paths {
		f, ok, err := readFile(repo, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		if ok {
			snap.Files = append(snap.Files, f)
		}
	}

	slog.Info("snapshot built", "files", len(snap.Files))

	return snap, nil
}

// readFile loads one tracked path. ok is false when the path
// has nothing to embed.
func readFile(repo *git.Repo, rel string) (File, bool, error) {
	abs := repo.Path(rel)

	fi, err := os.Lstat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("tracked file missing from working tree", "path", rel)

		return File{}, false, nil
	}

	if err != nil {
		return File{}, false, &git.RepositoryError{
			Dir: repo.Dir, Op: "stat " + rel, Err: err,
		}
	}

	switch {
	case fi.IsDir():
		// Submodule gitlink.
		slog.Debug("skipping submodule", "path", rel)

		return File{}, false, nil
	case fi.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(abs)
		if err != nil {
			return File{}, false, &git.RepositoryError{
				Dir: repo.Dir, Op: "readlink " + rel, Err: err,
			}
		}

		return File{
			Path:    rel,
			Content: target,
			Digest:  digester.Sum([]byte(target)),
		}, true, nil
	}

	data, err := os.ReadFile(abs) //nolint:gosec // path comes from git ls-files
	if err != nil {
		return File{}, false, &git.RepositoryError{
			Dir: repo.Dir, Op: "read " + rel, Err: err,
		}
	}

	f := File{Path: rel, Digest: digester.Sum(data)}

	if isBinary(data) {
		f.Binary = true

		return f, true, nil
	}

	f.Content = string(data)

	return f, true, nil
}

// isBinary reports whether data should not be embedded as
// text.
func isBinary(data []byte) bool {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(data)
}

// Paths returns the file paths in snapshot order.
func (s *Snapshot) Paths() []string {
	paths := make([]string, len(s.Files))
	for i, f := range s.Files {
		paths[i] = f.Path
	}

	return paths
}

// Stale returns, sorted, the targets whose working-tree entry
// under root no longer matches the snapshot. A target missing
// from the snapshot must still be absent, unless it is a
// directory holding snapshot files; those files are checked
// instead.
func (s *Snapshot) Stale(root string, targets []string) ([]string, error) {
	const errCtx = "checking for stale files"

	byPath := make(map[string]string, len(s.Files))
	for _, f := range s.Files {
		byPath[f.Path] = f.Digest
	}

	seen := make(map[string]struct{})

	var stale []string

	check := func(rel, expected string) error {
		if _, ok := seen[rel]; ok {
			return nil
		}

		seen[rel] = struct{}{}

		ok, err := digester.VerifyDigest(
			filepath.Join(root, filepath.FromSlash(rel)), expected,
		)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", errCtx, rel, err)
		}

		if !ok {
			stale = append(stale, rel)
		}

		return nil
	}

	for _, t := range targets {
		if digest, ok := byPath[t]; ok {
			if err := check(t, digest); err != nil {
				return nil, err
			}

			continue
		}

		var under []string

		prefix := t + "/"
		for p := range byPath {
			if strings.HasPrefix(p, prefix) {
				under = append(under, p)
			}
		}

		if len(under) == 0 {
			if err := check(t, ""); err != nil {
				return nil, err
			}

			continue
		}

		for _, p := range under {
			if err := check(p, byPath[p]); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(stale)

	return stale, nil
}

// Encode serializes the snapshot as a JSON array of
// {"path", "content"} objects.
func (s *Snapshot) Encode() (string, error) {
	const errCtx = "encoding snapshot"

	files := s.Files
	if files == nil {
		files = []File{}
	}

	by, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return string(by), nil
}
