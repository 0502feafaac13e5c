// Package digester calculates SHA256 digests of working-tree
// entries. git2gpt records a digest for every file when it
// takes a snapshot and compares them again before writing, so
// that edits made while the model was thinking are not
// silently overwritten.
package digester
