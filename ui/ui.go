// Package ui prints colored operator messages and asks for
// confirmation.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Console writes operator-facing output. Messages go to Err so
// that Out only carries answers and diffs.
type Console struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	header  *color.Color
	info    *color.Color
	success *color.Color
	warning *color.Color
	failure *color.Color
	prompt  *color.Color
	reader  *bufio.Reader
}

// New returns a Console. noColor forces plain output.
func New(in io.Reader, out, errOut io.Writer, noColor bool) *Console {
	c := &Console{
		In:      in,
		Out:     out,
		Err:     errOut,
		header:  color.New(color.FgBlue, color.Bold),
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed),
		prompt:  color.New(color.FgMagenta),
	}

	if noColor {
		for _, col := range []*color.Color{
			c.header, c.info, c.success, c.warning, c.failure, c.prompt,
		} {
			col.DisableColor()
		}
	}

	return c
}

// Header prints a bold section title.
func (c *Console) Header(format string, a ...any) {
	_, _ = c.header.Fprintf(c.Err, format+"\n", a...)
}

// Info prints a neutral status line.
func (c *Console) Info(format string, a ...any) {
	_, _ = c.info.Fprintf(c.Err, format+"\n", a...)
}

// Success prints a completed-step line in green.
func (c *Console) Success(format string, a ...any) {
	_, _ = c.success.Fprintf(c.Err, format+"\n", a...)
}

// Warning prints a non-fatal problem in yellow.
func (c *Console) Warning(format string, a ...any) {
	_, _ = c.warning.Fprintf(c.Err, format+"\n", a...)
}

// Error prints a failure line in red.
func (c *Console) Error(format string, a ...any) {
	_, _ = c.failure.Fprintf(c.Err, format+"\n", a...)
}

// Print writes s to Out unchanged.
func (c *Console) Print(s string) {
	_, _ = io.WriteString(c.Out, s)
}

// Confirm asks a y/N question on Err and reads one line from
// In. Only "y" or "yes" (any case) confirm; anything else,
// including end of input, declines.
func (c *Console) Confirm(question string) bool {
	_, _ = c.prompt.Fprintf(c.Err, "%s (y/N): ", question)

	if c.reader == nil {
		c.reader = bufio.NewReader(c.In)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(c.Err)

		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// List prints items indented under a header line.
func (c *Console) List(items []string) {
	for _, it := range items {
		_, _ = fmt.Fprintf(c.Err, "  - %s\n", it)
	}
}
