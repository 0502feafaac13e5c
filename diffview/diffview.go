// Package diffview previews mutations as unified diffs
// against the current working tree, before anything is
// written.
package diffview

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/byte4ever/git2gpt/mutation"
)

const (
	devNull     = "/dev/null"
	noEOLMarker = "\\ No newline at end of file\n"
	contextSize = 3
)

// Unified returns the unified diff turning before into after,
// labeled a/path and b/path. Equal inputs give "".
func Unified(path, before, after string) (string, error) {
	return unified("a/"+path, "b/"+path, before, after)
}

func unified(from, to, before, after string) (string, error) {
	const errCtx = "computing diff"

	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: from,
		ToFile:   to,
		Context:  contextSize,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, to, err)
	}

	return out, nil
}

// splitLines splits s into newline-terminated lines. A last
// line without newline carries git's marker so that a
// missing final newline still shows up as a change.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	lines := strings.SplitAfter(s, "\n")

	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}

	lines[last] += "\n" + noEOLMarker

	return lines
}

// Renderer prints mutation diffs.
type Renderer struct {
	Out io.Writer
	// NoColor forces plain output.
	NoColor bool
}

// Render prints one diff per mutation, reading the prior
// content from the working tree under root. Mutation paths
// must already be normalized (see applier.Partition). It
// returns how many mutations change something.
func (r *Renderer) Render(
	root string,
	mutations []mutation.Mutation,
) (int, error) {
	const errCtx = "rendering diff"

	changed := 0

	for _, m := range mutations {
		n, err := r.renderOne(root, m)
		if err != nil {
			return changed, fmt.Errorf("%s: %w", errCtx, err)
		}

		changed += n
	}

	return changed, nil
}

func (r *Renderer) renderOne(root string, m mutation.Mutation) (int, error) {
	abs := filepath.Join(root, filepath.FromSlash(m.FilePath))
	note := r.paint(color.New(color.FgYellow))

	before, exists, err := readPrior(abs)

	var dirErr *isDirError
	if errors.As(err, &dirErr) {
		if m.Action == mutation.Delete {
			note.Fprintf(r.Out, "delete directory %s/\n", m.FilePath)

			return 1, nil
		}

		return 0, err
	}

	if err != nil {
		return 0, err
	}

	from, to := "a/"+m.FilePath, "b/"+m.FilePath
	after := m.Content

	switch {
	case m.Action == mutation.Delete && !exists:
		note.Fprintf(r.Out, "delete %s: already absent\n", m.FilePath)

		return 0, nil
	case m.Action == mutation.Delete:
		to, after = devNull, ""
	case !exists:
		from = devNull
	}

	out, err := unified(from, to, before, after)
	if err != nil {
		return 0, err
	}

	if out == "" && exists {
		note.Fprintf(r.Out, "%s %s: no changes\n", m.Action, m.FilePath)

		return 0, nil
	}

	if out == "" {
		// New empty file.
		note.Fprintf(r.Out, "%s %s: new empty file\n", m.Action, m.FilePath)

		return 1, nil
	}

	r.print(out)

	return 1, nil
}

// print writes a diff, coloring lines by their prefix.
func (r *Renderer) print(diff string) {
	var (
		header = r.paint(color.New(color.Bold))
		hunk   = r.paint(color.New(color.FgCyan))
		added  = r.paint(color.New(color.FgGreen))
		gone   = r.paint(color.New(color.FgRed))
		plain  = r.paint(color.New(color.Reset))
	)

	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}

		c := plain

		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			c = header
		case strings.HasPrefix(line, "@@"):
			c = hunk
		case strings.HasPrefix(line, "+"):
			c = added
		case strings.HasPrefix(line, "-"):
			c = gone
		}

		c.Fprint(r.Out, strings.TrimSuffix(line, "\n"))
		fmt.Fprintln(r.Out)
	}
}

func (r *Renderer) paint(c *color.Color) *color.Color {
	if r.NoColor {
		c.DisableColor()
	}

	return c
}

type isDirError struct {
	path string
}

func (e *isDirError) Error() string {
	return e.path + " is a directory"
}

// readPrior returns the current content at abs, or the
// target of a symlink. exists is false when nothing is there.
func readPrior(abs string) (string, bool, error) {
	fi, err := os.Lstat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	if fi.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(abs)
		if err != nil {
			return "", false, err
		}

		return target, true, nil
	}

	if fi.IsDir() {
		return "", true, &isDirError{path: abs}
	}

	by, err := os.ReadFile(abs) //nolint:gosec // path validated by caller
	if err != nil {
		return "", false, err
	}

	return string(by), true, nil
}
