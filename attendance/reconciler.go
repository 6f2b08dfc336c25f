/*
reconciler.go - Merges roster identities with daily record files

PURPOSE:
  Answers "what is every visible student's status on date D" and accepts
  whole-day status submissions. This is the only component that talks to
  both the RosterStore and the RecordFile.

READ ALGORITHM (AttendanceForDate):
  1. Roster entries with creationDate <= D
  2. File records for D with creationDate <= D (creationDate falls back to
     the attendance date for old rows)
  3. Each roster entry takes its record's status and date, or StatusUnset
     and D when there is no record
  4. File records with no roster entry are appended as orphans, still
     subject to the visibility rule
  5. Sort by student id ascending

WRITE ALGORITHM (SaveDailyAttendance):
  Every mark is validated before anything is written:
  - unknown student id  -> *NotFoundError
  - bad status token    -> *ValidationError
  Then one WriteAll for the whole batch. All-or-nothing from the caller's
  point of view: a rejected batch leaves the day's file untouched.

SEE ALSO:
  - store.go: RosterStore, RecordFile
  - report.go: Statistics over a reconciled day
*/
package attendance

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/attendance-engine/logger"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler is safe for concurrent use; it holds no mutable state of its own.
type Reconciler struct {
	roster RosterStore
	files  RecordFile
	today  func() Date
	log    *zap.SugaredLogger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides how "today" is computed.
func WithClock(today func() Date) Option {
	return func(r *Reconciler) { r.today = today }
}

// WithLogger overrides the component logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Reconciler) { r.log = l }
}

// NewReconciler wires a roster and a record file together.
func NewReconciler(roster RosterStore, files RecordFile, opts ...Option) *Reconciler {
	r := &Reconciler{
		roster: roster,
		files:  files,
		today:  Today,
		log:    logger.ComponentLogger("reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Today returns the reconciler's notion of the current date.
func (r *Reconciler) Today() Date { return r.today() }

// =============================================================================
// ROSTER OPERATIONS
// =============================================================================

// AddStudent creates a roster entry. A zero creationDate means today.
func (r *Reconciler) AddStudent(ctx context.Context, name string, creationDate Date) (StudentIdentity, error) {
	s, err := r.roster.AddStudent(ctx, name, creationDate.OrToday(r.today))
	if err != nil {
		return StudentIdentity{}, err
	}
	r.log.Infow("Student added",
		logger.FieldStudentID, s.ID,
		"name", s.Name,
		"creation_date", s.CreationDate.String())
	return s, nil
}

// GetStudent looks up one roster entry.
func (r *Reconciler) GetStudent(ctx context.Context, id StudentID) (StudentIdentity, error) {
	return r.roster.Get(ctx, id)
}

// ListStudents returns the whole roster, id ascending.
func (r *Reconciler) ListStudents(ctx context.Context) ([]StudentIdentity, error) {
	return r.roster.ListAll(ctx)
}

// SearchStudents matches names case-insensitively; blank returns everyone.
func (r *Reconciler) SearchStudents(ctx context.Context, substring string) ([]StudentIdentity, error) {
	return r.roster.SearchByName(ctx, substring)
}

// =============================================================================
// READ PATH
// =============================================================================

// AttendanceForDate returns one entry per visible student plus visible orphans.
func (r *Reconciler) AttendanceForDate(ctx context.Context, d Date) ([]Entry, error) {
	if d.IsZero() {
		return nil, &ValidationError{Field: "date", Reason: "date is required"}
	}

	roster, err := r.roster.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list roster")
	}

	records, err := r.files.ReadAll(ctx, d)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read attendance for %s", d)
	}

	byID := make(map[StudentID]Record, len(records))
	for _, rec := range records {
		if rec.VisibleOn(d) {
			byID[rec.StudentID] = rec
		}
	}

	entries := make([]Entry, 0, len(roster)+len(byID))
	seen := make(map[StudentID]bool, len(roster))
	for _, s := range roster {
		if !s.VisibleOn(d) {
			continue
		}
		seen[s.ID] = true
		e := Entry{StudentID: s.ID, Name: s.Name, Status: StatusUnset, Date: d}
		if rec, ok := byID[s.ID]; ok {
			e.Status = rec.Status
			if !rec.AttendanceDate.IsZero() {
				e.Date = rec.AttendanceDate
			}
		}
		entries = append(entries, e)
	}

	for id, rec := range byID {
		if seen[id] {
			continue
		}
		date := rec.AttendanceDate
		if date.IsZero() {
			date = d
		}
		entries = append(entries, Entry{
			StudentID: id,
			Name:      rec.Name,
			Status:    rec.Status,
			Date:      date,
			Orphan:    true,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].StudentID < entries[j].StudentID })
	return entries, nil
}

// Report computes statistics for one date. A zero date means today.
func (r *Reconciler) Report(ctx context.Context, d Date) (Report, error) {
	d = d.OrToday(r.today)
	entries, err := r.AttendanceForDate(ctx, d)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(d, entries), nil
}

// AvailableDates lists dates that have a daily file, most recent first.
func (r *Reconciler) AvailableDates(ctx context.Context) ([]Date, error) {
	return r.files.ListDates(ctx)
}

// =============================================================================
// WRITE PATH
// =============================================================================

// SaveDailyAttendance validates every mark, persists the batch in one write,
// and returns the resulting report for d.
func (r *Reconciler) SaveDailyAttendance(ctx context.Context, d Date, marks []Mark) (Report, error) {
	if d.IsZero() {
		return Report{}, &ValidationError{Field: "date", Reason: "date is required"}
	}
	if len(marks) == 0 {
		return Report{}, &ValidationError{Field: "entries", Reason: "at least one entry is required"}
	}

	records := make([]Record, 0, len(marks))
	for _, m := range marks {
		student, err := r.roster.Get(ctx, m.StudentID)
		if err != nil {
			return Report{}, err
		}
		status, err := ParseStatus(m.Status)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Reason = ve.Reason + " for student " + student.Name
			}
			return Report{}, err
		}
		records = append(records, Record{
			StudentID:      student.ID,
			Name:           student.Name,
			Status:         status,
			AttendanceDate: d,
			CreationDate:   student.CreationDate,
		})
	}

	batchID := uuid.NewString()
	if err := r.files.WriteAll(ctx, d, records); err != nil {
		r.log.Errorw("Failed to save attendance",
			logger.FieldBatchID, batchID,
			logger.FieldDate, d.String(),
			logger.FieldError, err)
		return Report{}, errors.Wrapf(err, "failed to save attendance for %s", d)
	}
	r.log.Infow("Attendance saved",
		logger.FieldBatchID, batchID,
		logger.FieldDate, d.String(),
		logger.FieldCount, len(records))

	return r.Report(ctx, d)
}

// RemoveFromDate deletes one student's record for d.
func (r *Reconciler) RemoveFromDate(ctx context.Context, d Date, id StudentID) error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	if err := r.files.Remove(ctx, d, id); err != nil {
		return errors.Wrapf(err, "failed to remove student %d from %s", id, d)
	}
	return nil
}

// errNoPruning is returned when the record file cannot delete in bulk.
var errNoPruning = errors.New("record file does not support bulk deletion")

// DeleteDate drops every record for d. Reports whether anything was stored.
func (r *Reconciler) DeleteDate(ctx context.Context, d Date) (bool, error) {
	if d.IsZero() {
		return false, &ValidationError{Field: "date", Reason: "date is required"}
	}
	p, ok := r.files.(DayPruner)
	if !ok {
		return false, errNoPruning
	}
	deleted, err := p.Delete(ctx, d)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete attendance for %s", d)
	}
	if deleted {
		r.log.Infow("Attendance day deleted", logger.FieldDate, d.String())
	}
	return deleted, nil
}

// PurgeStudent removes every stored record for id, on every date.
// The roster entry, if any, is untouched.
func (r *Reconciler) PurgeStudent(ctx context.Context, id StudentID) error {
	p, ok := r.files.(DayPruner)
	if !ok {
		return errNoPruning
	}
	if err := p.RemoveEverywhere(ctx, id); err != nil {
		return errors.Wrapf(err, "failed to purge student %d", id)
	}
	r.log.Infow("Student purged from attendance", logger.FieldStudentID, id)
	return nil
}
