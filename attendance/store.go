/*
store.go - Persistence interfaces for the attendance engine

KEY INTERFACES:
  RosterStore: who exists (identity, id assignment, search)
  RecordFile:  what happened on each date (one flat file per date)
  DayPruner:   optional bulk deletion on top of RecordFile

CONCURRENCY CONTRACT:
  Both interfaces must be safe for concurrent use without external locking.
  - RosterStore: id assignment is serialized with insertion, so concurrent
    AddStudent calls never issue the same id.
  - RecordFile: WriteAll reads, merges and rewrites a whole day. Writers to
    the same date are serialized; writers to different dates do not contend.

IMPLEMENTATIONS:
  - attendance/store/memory.go: In-memory roster
  - store/sqlite/sqlite.go:     SQLite roster (survives restarts)
  - store/dailyfile:            CSV-style daily files

SEE ALSO:
  - reconciler.go: The only consumer of both interfaces
*/
package attendance

import "context"

// =============================================================================
// ROSTER STORE
// =============================================================================

// RosterStore is the source of truth for who exists.
type RosterStore interface {
	// AddStudent assigns the next id. A zero creationDate means today.
	// Returns *ValidationError for a blank name.
	AddStudent(ctx context.Context, name string, creationDate Date) (StudentIdentity, error)

	// Get returns *NotFoundError for unknown ids.
	Get(ctx context.Context, id StudentID) (StudentIdentity, error)

	// ListAll returns every student, id ascending.
	ListAll(ctx context.Context) ([]StudentIdentity, error)

	// SearchByName is a case-insensitive substring match, id ascending.
	// A blank substring returns everyone.
	SearchByName(ctx context.Context, substring string) ([]StudentIdentity, error)

	// Count returns the roster size.
	Count(ctx context.Context) (int, error)
}

// =============================================================================
// RECORD FILE
// =============================================================================

// RecordFile persists one set of records per calendar date.
type RecordFile interface {
	// Exists reports whether a file exists for the date.
	Exists(ctx context.Context, date Date) (bool, error)

	// ReadAll returns the date's records. A missing file is an empty result.
	// Undecodable lines are skipped, not reported.
	ReadAll(ctx context.Context, date Date) ([]Record, error)

	// WriteAll merges records into the date's file keyed by student id
	// (given records win, others are preserved) and rewrites it whole.
	WriteAll(ctx context.Context, date Date, records []Record) error

	// Remove rewrites the date's file without the student. No-op if absent.
	Remove(ctx context.Context, date Date, id StudentID) error

	// ListDates returns every date with a file, most recent first.
	ListDates(ctx context.Context) ([]Date, error)
}

// DayPruner is implemented by record files that can drop a whole day or
// purge one student from every day.
type DayPruner interface {
	// Delete removes the date's file. Reports whether one existed.
	Delete(ctx context.Context, date Date) (bool, error)

	// RemoveEverywhere removes the student from every date.
	RemoveEverywhere(ctx context.Context, id StudentID) error
}
