// Package commitmsg generates and parses the commit messages git2gpt
// writes. The list of applied changes is encoded between marker lines
// so a later run, or a person reading the log, can recover exactly
// which files the model touched.
package commitmsg
