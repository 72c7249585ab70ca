// Package source reads raw sales records out of tabular files.
//
// Extraction failures are classified with sentinel errors so the
// orchestrator can report the three conditions distinctly instead of
// conflating them. Use errors.Is(err, ErrXxx) for typed assertions.
package source

import (
	"errors"
	"fmt"
)

// Sentinel errors for extraction failure classification.
var (
	// ErrMissing indicates the input file does not exist.
	ErrMissing = errors.New("input file missing")

	// ErrEmpty indicates the input file holds no data rows.
	ErrEmpty = errors.New("input file empty")

	// ErrColumns indicates one or more required columns are absent.
	ErrColumns = errors.New("required columns missing")

	// ErrValue indicates a cell failed to parse. The whole record set is
	// rejected, not the single row.
	ErrValue = errors.New("unparseable value")
)

// Error wraps an underlying error with extraction classification.
// It preserves the original error in the chain for errors.As.
type Error struct {
	// Kind is the sentinel for classification (e.g. ErrColumns).
	Kind error
	// Path is the input file involved.
	Path string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Path, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// newError creates a classified extraction error.
func newError(kind error, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
