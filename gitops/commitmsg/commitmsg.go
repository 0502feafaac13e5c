package commitmsg

import (
	"log/slog"
	"strings"
)

const (
	begin = "--- git2gpt changes begin ---"
	end   = "--- git2gpt changes end ---"
)

// ExtractChanges extracts the list of applied changes from
// a commit message delimited by begin/end markers.
func ExtractChanges(msg string) []string {
	var changes []string

	betweenMarkers := false

	for _, line := range strings.Split(msg, "\n") {
		switch line {
		case begin:
			betweenMarkers = true
		case end:
			betweenMarkers = false
		default:
			if betweenMarkers {
				changes = append(changes, line)
			}
		}
	}

	if betweenMarkers {
		slog.Warn("unable to find end marker in commit message")

		return nil
	}

	return changes
}

// Generate produces a commit message: the subject line, the
// operator prompt as body, then the changes between
// begin/end markers.
func Generate(subject, prompt string, changes []string) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(subject))
	sb.WriteByte('\n')

	if p := strings.TrimSpace(prompt); p != "" {
		sb.WriteByte('\n')
		sb.WriteString("Prompt: ")
		sb.WriteString(p)
		sb.WriteByte('\n')
	}

	sb.WriteByte('\n')
	sb.WriteString(begin)
	sb.WriteByte('\n')

	for _, c := range changes {
		sb.WriteString(c)
		sb.WriteByte('\n')
	}

	sb.WriteString(end)
	sb.WriteByte('\n')

	return sb.String()
}
