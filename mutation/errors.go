package mutation

import "fmt"

// MalformedResponseError reports a model reply that is not
// valid JSON or does not match the mutation array shape.
type MalformedResponseError struct {
	// Raw is the unmodified reply.
	Raw string
	// DumpPath is where Raw was saved, empty when saving
	// failed or was disabled.
	DumpPath string
	// Err describes what was wrong.
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.DumpPath == "" {
		return fmt.Sprintf("malformed model response: %v", e.Err)
	}

	return fmt.Sprintf(
		"malformed model response (saved to %s): %v",
		e.DumpPath, e.Err,
	)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
