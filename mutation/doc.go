// Package mutation defines the file-level changes a model proposes
// and parses them out of raw model replies.
//
// The wire format is a JSON array of objects:
//
//	[{"action": "add"|"modify"|"delete", "file_path": "...", "content": "..."}]
//
// content is required for add and modify and ignored for delete.
// Parser tolerates a reply wrapped in a fenced code block and keeps
// the raw reply in a side file whenever it cannot be parsed.
package mutation
