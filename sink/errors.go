package sink

import (
	"errors"
	"fmt"
)

// Sentinel errors for sink failure classification. Connectivity failures
// are retryable and eligible for the fallback path; schema and insert
// failures reached a live database and are not.
var (
	// ErrConnectivity indicates the database could not be reached after
	// all connection attempts were exhausted.
	ErrConnectivity = errors.New("database unreachable")

	// ErrSchema indicates table creation or verification failed.
	ErrSchema = errors.New("schema setup failed")

	// ErrInsert indicates the insert transaction failed and was rolled back.
	ErrInsert = errors.New("insert failed")
)

// Error wraps an underlying error with sink classification. It preserves
// the original error in the chain for inspection via errors.As.
type Error struct {
	// Kind is the sentinel error for classification (e.g., ErrConnectivity).
	Kind error
	// Op is the operation that failed (e.g., "connect", "ensure_schema").
	Op string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sink %s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
