package ingest

import "fmt"

// DecodeError marks a malformed or incomplete source row. The run aborts;
// re-running the same file reproduces it, so there is no retry.
type DecodeError struct {
	Line  int
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode line %d: field %q: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("decode line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError marks a failed window transaction. The window rolled back
// whole; windows committed before it stay committed.
type WriteError struct {
	Window int
	Step   string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write window %d: %s: %v", e.Window, e.Step, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
