// Package git wraps a local git working tree.
//
// Open validates a directory and resolves the repository root. Repo
// lists tracked files, reads them, stages the whole tree, and commits.
// Every failure is reported as a *RepositoryError so callers can tell
// repository problems apart from other errors.
package git
