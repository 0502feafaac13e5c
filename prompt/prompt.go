package prompt

import (
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/git2gpt/chat"
	"github.com/byte4ever/git2gpt/mutation"
)

const (
	startTag    = "{{"
	endTag      = "}}"
	snapshotTag = startTag + "snapshot" + endTag
)

// Default templates.
const (
	DefaultPersona = "You are an impressive and thorough software " +
		"development assistant. Here is a snapshot of a repository " +
		"as a JSON array of {\"path\", \"content\"} objects: {{snapshot}}"

	DefaultFormat = "Reply ONLY with a JSON array of file mutations " +
		"using exactly this schema: {{schema}}\n" +
		"\"content\" must hold the complete new file content and is " +
		"omitted for \"delete\". Only change files that appear in " +
		"the snapshot. Do not add explanations, comments or any " +
		"other text before or after the JSON array."

	DefaultInstruction = "{{prompt}}"

	DefaultQuestion = "Answer the following question about the code: " +
		"{{prompt}}"
)

// Builder expands the templates into chat messages. Empty
// fields fall back to the defaults.
type Builder struct {
	Persona     string
	Format      string
	Instruction string
	Question    string
}

// Edit returns the messages for mutation mode: persona with
// snapshot, output-format contract, then the instruction.
func (b Builder) Edit(snapshot, instruction string) []chat.Message {
	vars := variables(snapshot, instruction)

	return []chat.Message{
		{Role: chat.System, Content: b.persona(vars)},
		{Role: chat.System, Content: expand(or(b.Format, DefaultFormat), vars)},
		{Role: chat.User, Content: expand(or(b.Instruction, DefaultInstruction), vars)},
	}
}

// Ask returns the messages for question mode: persona with
// snapshot, then the question.
func (b Builder) Ask(snapshot, question string) []chat.Message {
	vars := variables(snapshot, question)

	return []chat.Message{
		{Role: chat.System, Content: b.persona(vars)},
		{Role: chat.User, Content: expand(or(b.Question, DefaultQuestion), vars)},
	}
}

// persona expands the persona template. A template without
// the snapshot tag gets the snapshot appended, so the first
// message always carries it.
func (b Builder) persona(vars map[string]interface{}) string {
	tpl := or(b.Persona, DefaultPersona)
	if !strings.Contains(tpl, snapshotTag) {
		tpl += "\n\nRepository snapshot: " + snapshotTag
	}

	return expand(tpl, vars)
}

func variables(snapshot, prompt string) map[string]interface{} {
	return map[string]interface{}{
		"snapshot": snapshot,
		"prompt":   prompt,
		"schema":   mutation.Schema,
	}
}

// expand substitutes vars into tpl in a single pass, so
// template tags inside the snapshot are not expanded again.
func expand(tpl string, vars map[string]interface{}) string {
	return fasttemplate.ExecuteStringStd(tpl, startTag, endTag, vars)
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
