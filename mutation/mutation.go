package mutation

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Action is the kind of change a Mutation applies.
type Action string

// Supported actions.
const (
	Add    Action = "add"
	Modify Action = "modify"
	Delete Action = "delete"
)

// Schema is the wire format stated to the model.
const Schema = `[{"action": "add"|"modify"|"delete", ` +
	`"file_path": "...", "content": "..."}]`

// Mutation is one file-level change.
type Mutation struct {
	Action   Action
	FilePath string
	// Content is the complete new file content. Ignored for
	// Delete.
	Content string
}

// wireMutation mirrors the JSON shape. Content is a pointer
// so a missing key can be told apart from an empty file.
type wireMutation struct {
	Action   string  `json:"action"`
	FilePath string  `json:"file_path"`
	Content  *string `json:"content,omitempty"`
}

// HasContent reports whether the action carries content.
func (a Action) HasContent() bool {
	return a == Add || a == Modify
}

// ParseAction maps a wire action name to an Action. Matching
// ignores case and surrounding space.
func ParseAction(s string) (Action, error) {
	switch act := Action(strings.ToLower(strings.TrimSpace(s))); act {
	case Add, Modify, Delete:
		return act, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// String renders the mutation as "action path".
func (m Mutation) String() string {
	return string(m.Action) + " " + m.FilePath
}

// MarshalJSON encodes m in the wire format. content is
// always present for add and modify, even when empty, and
// omitted for delete.
func (m Mutation) MarshalJSON() ([]byte, error) {
	w := wireMutation{
		Action:   string(m.Action),
		FilePath: m.FilePath,
	}

	if m.Action.HasContent() {
		content := m.Content
		w.Content = &content
	}

	return json.Marshal(w)
}

// Encode serializes mutations in the wire format.
func Encode(mutations []Mutation) ([]byte, error) {
	const errCtx = "encoding mutations"

	if mutations == nil {
		mutations = []Mutation{}
	}

	by, err := json.Marshal(mutations)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return by, nil
}

// toMutation validates a decoded wire object.
func (w wireMutation) toMutation() (Mutation, error) {
	act, err := ParseAction(w.Action)
	if err != nil {
		return Mutation{}, err
	}

	if strings.TrimSpace(w.FilePath) == "" {
		return Mutation{}, fmt.Errorf("%s: empty file_path", act)
	}

	m := Mutation{Action: act, FilePath: w.FilePath}

	if act.HasContent() {
		if w.Content == nil {
			return Mutation{}, fmt.Errorf(
				"%s %s: missing content", act, w.FilePath,
			)
		}

		m.Content = *w.Content
	}

	return m, nil
}
