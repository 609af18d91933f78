package memory

import (
	"errors"
	"fmt"
)

// SoftKind names a recoverable failure category. Soft failures are absorbed
// at the boundary that meets them: scoring substitutes a neutral 0.0,
// expansion falls back to the original query, touch write-backs are dropped
// after logging. Errors not wrapped as SoftError propagate to the caller.
type SoftKind string

const (
	// KindTimestamp marks an unparseable created_at/last_accessed_at value.
	KindTimestamp SoftKind = "malformed_timestamp"
	// KindExpansion marks a query-expansion call that errored or returned
	// something other than a JSON array of strings.
	KindExpansion SoftKind = "expansion_failure"
	// KindWriteBack marks a failed touch upsert.
	KindWriteBack SoftKind = "write_back_failure"
)

// SoftError is a recoverable failure tagged with its category.
type SoftError struct {
	Kind SoftKind
	Err  error
}

func (e *SoftError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SoftError) Unwrap() error { return e.Err }

func soft(kind SoftKind, err error) *SoftError {
	return &SoftError{Kind: kind, Err: err}
}

func softf(kind SoftKind, format string, args ...any) *SoftError {
	return &SoftError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsSoft reports whether err is a SoftError of the given kind.
func IsSoft(err error, kind SoftKind) bool {
	var se *SoftError
	return errors.As(err, &se) && se.Kind == kind
}
