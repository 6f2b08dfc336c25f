/*
Package dailyfile stores attendance as one flat file per calendar date.

LAYOUT:
  <dir>/attendance_YYYY-MM-DD.csv
  First line: Header. Then one record per line, current schema, sorted by
  student id.

WRITE SEMANTICS:
  WriteAll is read-merge-rewrite: existing records are loaded, the given
  records replace those with the same student id, everything else is kept,
  and the whole file is replaced atomically (temp file + rename). Readers
  never observe a half-written file.

CONCURRENCY:
  One RWMutex per date. WriteAll, Remove and Delete hold the write lock for
  the whole read-merge-rewrite, so two writers to the same day cannot both
  read the old state and clobber each other. Different days never contend.
  The lock is in-process only; two processes sharing a directory are not
  coordinated.

READ SEMANTICS:
  A missing file is an empty day. A line that fails to decode is logged and
  skipped. Only filesystem errors fail a read.

SEE ALSO:
  - codec.go: Line format and legacy schemas
  - attendance/store.go: RecordFile interface
*/
package dailyfile

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/logger"
)

// File naming.
const (
	FilePrefix    = "attendance_"
	FileExtension = ".csv"
)

const filePerm = 0o644

// Store implements attendance.RecordFile on a directory.
type Store struct {
	dir   string
	locks *dateLocks
	log   *zap.SugaredLogger
}

var (
	_ attendance.RecordFile = (*Store)(nil)
	_ attendance.DayPruner  = (*Store)(nil)
)

// Open prepares dir for use, creating it if needed. Call once at startup;
// an uncreatable directory is reported here rather than on first write.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create attendance directory %s", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat attendance directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("attendance storage path %s is not a directory", dir)
	}
	return &Store{
		dir:   dir,
		locks: newDateLocks(),
		log:   logger.ComponentLogger("dailyfile"),
	}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// FileName returns the base name of the file for a date.
func FileName(d attendance.Date) string {
	return FilePrefix + d.String() + FileExtension
}

// Path returns the full path of the file for a date.
func (s *Store) Path(d attendance.Date) string {
	return filepath.Join(s.dir, FileName(d))
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) Exists(_ context.Context, d attendance.Date) (bool, error) {
	_, err := os.Stat(s.Path(d))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %s", s.Path(d))
}

func (s *Store) ReadAll(ctx context.Context, d attendance.Date) ([]attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := s.locks.get(d)
	lock.RLock()
	defer lock.RUnlock()
	return s.readLocked(d)
}

func (s *Store) readLocked(d attendance.Date) ([]attendance.Record, error) {
	path := s.Path(d)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []attendance.Record{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return s.decodeFile(string(data), d, path), nil
}

// decodeFile skips the header and every undecodable line. When a student
// appears twice the later line wins.
func (s *Store) decodeFile(data string, d attendance.Date, path string) []attendance.Record {
	lines := splitLogicalLines(data)
	byID := make(map[attendance.StudentID]attendance.Record)
	skipped := 0

	for i, line := range lines {
		if i == 0 {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := DecodeRecord(line, d)
		if err == nil {
			byID[rec.StudentID] = rec
			continue
		}
		if !strings.Contains(line, "\n") {
			skipped++
			s.logMalformed(path, line, err)
			continue
		}
		// A joined line that does not decode is retried one physical line
		// at a time, so a stray quote cannot take its neighbours down.
		for _, part := range strings.Split(line, "\n") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			rec, err := DecodeRecord(part, d)
			if err != nil {
				skipped++
				s.logMalformed(path, part, err)
				continue
			}
			byID[rec.StudentID] = rec
		}
	}

	records := make([]attendance.Record, 0, len(byID))
	for _, rec := range byID {
		records = append(records, rec)
	}
	sortRecords(records)

	s.log.Debugw("Read attendance file",
		logger.FieldFile, path,
		logger.FieldCount, len(records),
		"skipped", skipped)
	return records
}

func (s *Store) logMalformed(path, line string, err error) {
	s.log.Warnw("Skipping malformed attendance line",
		logger.FieldFile, path,
		logger.FieldLine, line,
		logger.FieldError, err)
}

// ListDates returns the dates of all well-named files, most recent first.
func (s *Store) ListDates(_ context.Context) ([]attendance.Date, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []attendance.Date{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", s.dir)
	}

	dates := make([]attendance.Date, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExtension) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileExtension)
		d, err := attendance.ParseDate(raw)
		if err != nil {
			s.log.Warnw("Ignoring attendance file with unparsable date",
				logger.FieldFile, name)
			continue
		}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) WriteAll(ctx context.Context, d attendance.Date, records []attendance.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.IsZero() {
		return &attendance.ValidationError{Field: "date", Reason: "date is required"}
	}
	for _, r := range records {
		if r.StudentID <= 0 {
			return &attendance.ValidationError{Field: "student_id", Reason: "must be positive"}
		}
		if !r.Status.IsSet() {
			return &attendance.ValidationError{Field: "status", Reason: "status is required"}
		}
	}

	lock := s.locks.get(d)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.readLocked(d)
	if err != nil {
		return err
	}

	merged := make(map[attendance.StudentID]attendance.Record, len(existing)+len(records))
	for _, r := range existing {
		merged[r.StudentID] = r
	}
	for _, r := range records {
		if r.AttendanceDate.IsZero() {
			r.AttendanceDate = d
		}
		merged[r.StudentID] = r
	}

	out := make([]attendance.Record, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sortRecords(out)

	if err := s.writeLocked(d, out); err != nil {
		return err
	}
	s.log.Infow("Saved attendance records",
		logger.FieldFile, s.Path(d),
		logger.FieldCount, len(out))
	return nil
}

func (s *Store) Remove(ctx context.Context, d attendance.Date, id attendance.StudentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.locks.get(d)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(s.Path(d)); os.IsNotExist(err) {
		return nil
	}

	existing, err := s.readLocked(d)
	if err != nil {
		return err
	}
	kept := existing[:0]
	removed := false
	for _, r := range existing {
		if r.StudentID == id {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if !removed {
		return nil
	}

	if err := s.writeLocked(d, kept); err != nil {
		return err
	}
	s.log.Infow("Removed student from attendance file",
		logger.FieldFile, s.Path(d),
		logger.FieldStudentID, id)
	return nil
}

// RemoveEverywhere removes a student from every daily file.
func (s *Store) RemoveEverywhere(ctx context.Context, id attendance.StudentID) error {
	dates, err := s.ListDates(ctx)
	if err != nil {
		return err
	}
	for _, d := range dates {
		if err := s.Remove(ctx, d, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a whole day. Reports whether a file was removed.
func (s *Store) Delete(_ context.Context, d attendance.Date) (bool, error) {
	lock := s.locks.get(d)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.Path(d))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete %s", s.Path(d))
	}
	s.log.Infow("Deleted attendance file", logger.FieldFile, s.Path(d))
	return true, nil
}

// writeLocked replaces the file with header + records. Caller holds the write lock.
func (s *Store) writeLocked(d attendance.Date, records []attendance.Record) error {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, r := range records {
		b.WriteString(EncodeRecord(r))
		b.WriteByte('\n')
	}

	path := s.Path(d)
	if err := atomic.WriteFile(path, strings.NewReader(b.String())); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	// atomic.WriteFile leaves new files with the temp file's 0600.
	if err := os.Chmod(path, filePerm); err != nil {
		return errors.Wrapf(err, "failed to set permissions on %s", path)
	}
	return nil
}

func sortRecords(r []attendance.Record) {
	sort.Slice(r, func(i, j int) bool { return r[i].StudentID < r[j].StudentID })
}
