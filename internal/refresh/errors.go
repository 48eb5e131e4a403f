package refresh

import "fmt"

// SchemaError means required tables were absent and provisioning failed.
// Nothing has been written when it surfaces.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("provision schema: %v", e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

// TruncateError means the full-dataset reset failed; the truncate
// transaction rolled back and prior data is intact.
type TruncateError struct {
	Table string
	Err   error
}

func (e *TruncateError) Error() string { return fmt.Sprintf("truncate %s: %v", e.Table, e.Err) }
func (e *TruncateError) Unwrap() error { return e.Err }

// ConnectionError means the database is unreachable. It is never retried
// within a run; the recurring scheduler's next tick is the retry path.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("database unreachable: %v", e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }
