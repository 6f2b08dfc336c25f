/*
Package attendance is the daily attendance record engine.

PURPOSE:
  Merges the roster (who exists) with date-partitioned attendance files
  (who was present on which day) into consistent per-date views, and
  accepts whole-day status submissions.

KEY CONCEPTS IN THIS FILE (types.go):
  - StudentIdentity: a roster entry, immutable after creation
  - Status: PRESENT or ABSENT; the zero value means "no record yet"
  - Record: one student's status on one date, as persisted
  - Entry: one reconciled row returned to callers
  - Mark: one (student, status token) pair in a save request

VISIBILITY RULE:
  A student, or a stored record, whose creation date is after the queried
  date is invisible for that date. The student did not exist yet.

SEE ALSO:
  - store.go: RosterStore and RecordFile interfaces
  - reconciler.go: The read/merge and validate/write algorithms
  - store/dailyfile: The flat-file RecordFile implementation
*/
package attendance

import (
	"strings"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// StudentID is assigned by the roster, starting at 1.
type StudentID int64

// =============================================================================
// STUDENT IDENTITY
// =============================================================================

// StudentIdentity is a roster entry. Owned by the RosterStore.
type StudentIdentity struct {
	ID           StudentID
	Name         string
	CreationDate Date
}

// VisibleOn reports whether the student existed on d.
func (s StudentIdentity) VisibleOn(d Date) bool {
	return s.CreationDate.BeforeOrEqual(d)
}

// =============================================================================
// STATUS
// =============================================================================

// Status is a student's attendance on one date.
type Status string

const (
	StatusUnset   Status = ""
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
)

// ParseStatus accepts PRESENT or ABSENT in any case.
func ParseStatus(token string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(token))) {
	case StatusPresent:
		return StatusPresent, nil
	case StatusAbsent:
		return StatusAbsent, nil
	}
	return StatusUnset, &ValidationError{Field: "status", Reason: "unrecognized status " + quote(token) + " (want PRESENT or ABSENT)"}
}

func (s Status) IsSet() bool { return s != StatusUnset }

func (s Status) String() string {
	if s == StatusUnset {
		return "UNSET"
	}
	return string(s)
}

// =============================================================================
// RECORD - One row of a daily file
// =============================================================================

// Record is one student's status for one date.
// Name and CreationDate are snapshots taken when the record was written.
type Record struct {
	StudentID      StudentID
	Name           string
	Status         Status
	AttendanceDate Date
	CreationDate   Date
}

// EffectiveCreationDate falls back to the attendance date for records that
// predate the creation_date column.
func (r Record) EffectiveCreationDate() Date {
	if r.CreationDate.IsZero() {
		return r.AttendanceDate
	}
	return r.CreationDate
}

// VisibleOn applies the visibility rule to a stored record.
func (r Record) VisibleOn(d Date) bool {
	c := r.EffectiveCreationDate()
	if c.IsZero() {
		return true
	}
	return c.BeforeOrEqual(d)
}

// =============================================================================
// ENTRY - One row of a reconciled view
// =============================================================================

// Entry is what callers see for one student on one date.
type Entry struct {
	StudentID StudentID
	Name      string
	Status    Status // StatusUnset when no record exists yet
	Date      Date
	Orphan    bool // record present in the file but not in the roster
}

// Mark is one element of a save request.
type Mark struct {
	StudentID StudentID
	Status    string
}

func quote(s string) string { return `"` + s + `"` }
