package git

import "fmt"

// RepositoryError reports a bad repository path or a failed git
// command.
type RepositoryError struct {
	// Dir is the directory the operation ran against.
	Dir string
	// Op names the failed operation (e.g. "list tracked files").
	Op string
	// Err is the underlying failure.
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %s: %v", e.Dir, e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}
