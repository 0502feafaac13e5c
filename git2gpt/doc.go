// Package git2gpt drives one model-assisted edit of a git
// working tree. It snapshots the tracked files, sends them to
// a chat model together with the operator prompt, parses the
// reply as file mutations, previews the diff, applies the
// mutations after confirmation and commits the result.
//
// The main entry point is Run, which accepts an Options struct
// with all parameters for the workflow. With Options.Ask set,
// Run prints the model's answer instead and leaves the tree
// untouched.
package git2gpt
