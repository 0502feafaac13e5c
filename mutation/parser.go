package mutation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"
)

// DefaultDumpPath is where unparseable replies are kept when
// no other path is configured.
const DefaultDumpPath = "git2gpt_response.txt"

const fence = "```"

// Parser turns raw model replies into mutations.
type Parser struct {
	// DumpPath receives the raw reply when parsing fails.
	// Empty disables the side file.
	DumpPath string
}

// Parse extracts the ordered mutation list from a model
// reply. The reply may be wrapped in a fenced code block. On
// any failure the raw reply is written to DumpPath and a
// *MalformedResponseError is returned; there is no partial
// result.
func (p Parser) Parse(text string) ([]Mutation, error) {
	body := stripFences(text)

	if !json.Valid([]byte(body)) {
		// The model sometimes wraps the array in prose;
		// accept a single fenced block in that case.
		if block, ok := soleCodeBlock(text); ok {
			slog.Debug("using fenced block embedded in prose")

			body = strings.TrimSpace(block)
		}
	}

	var wire []wireMutation

	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, p.fail(text, fmt.Errorf("decode json: %w", err))
	}

	if body == "null" {
		return nil, p.fail(text, errors.New("expected a json array"))
	}

	mutations := make([]Mutation, 0, len(wire))

	for i, w := range wire {
		m, err := w.toMutation()
		if err != nil {
			return nil, p.fail(text, fmt.Errorf("mutation %d: %w", i, err))
		}

		mutations = append(mutations, m)
	}

	return mutations, nil
}

// fail saves the raw reply and wraps err.
func (p Parser) fail(raw string, err error) error {
	mre := &MalformedResponseError{Raw: raw, Err: err}

	if p.DumpPath == "" {
		return mre
	}

	//nolint:gosec // operator-readable dump
	if werr := os.WriteFile(p.DumpPath, []byte(raw), 0o644); werr != nil {
		slog.Error(
			"cannot save model response",
			"path", p.DumpPath,
			"error", werr,
		)

		return mre
	}

	mre.DumpPath = p.DumpPath

	return mre
}

// stripFences removes a leading fence line (with optional
// language tag) and a trailing fence marker.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, fence) {
		return s
	}

	s = strings.TrimPrefix(s, fence)

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimLeftFunc(s, unicode.IsLetter)
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)

	return strings.TrimSpace(s)
}
