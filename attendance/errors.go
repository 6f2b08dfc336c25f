/*
errors.go - Error taxonomy for the attendance engine

ERROR CATEGORIES:
  1. ValidationError      - caller sent bad input (blank name, unknown status).
                            Surfaced; the operation is not attempted.
  2. NotFoundError        - reference to a student id the roster does not know.
                            Surfaced; batch saves detect it before writing anything.
  3. MalformedRecordError - one stored line cannot be decoded.
                            Recovered by the record file: the line is skipped and logged.
  4. I/O failures         - wrapped with context and surfaced as-is. Never retried.

USAGE:
  Match categories with errors.Is against the sentinels, or errors.As against
  the structured types when the details matter:

    if errors.Is(err, attendance.ErrNotFound) { ... }

    var nf *attendance.NotFoundError
    if errors.As(err, &nf) { log(nf.StudentID) }

SEE ALSO:
  - api/handlers.go: maps categories to HTTP status codes
  - store/dailyfile/codec.go: produces MalformedRecordError
*/
package attendance

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category of all caller input errors.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced student does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMalformedRecord is returned by the codec for undecodable lines.
	ErrMalformedRecord = errors.New("malformed attendance record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which input was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing student.
type NotFoundError struct {
	StudentID StudentID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("student not found with id %d", e.StudentID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MalformedRecordError carries the offending line verbatim.
type MalformedRecordError struct {
	Line   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %q: %s", e.Line, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing student.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsMalformedRecord returns true for codec failures.
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}
