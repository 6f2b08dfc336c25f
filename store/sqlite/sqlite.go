/*
Package sqlite provides a SQLite-backed RosterStore.

PURPOSE:
  Keeps the roster across restarts. Daily attendance stays in the flat files
  (store/dailyfile); only identities live here.

KEY TABLES:
  students: id INTEGER PRIMARY KEY AUTOINCREMENT, name, creation_date, created_at

ID ASSIGNMENT:
  AUTOINCREMENT never reuses an id, even after rows are deleted by hand.
  Inserts are serialized through the store mutex and the id is read back
  with LastInsertId, so concurrent AddStudent calls get distinct,
  increasing ids.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/roster.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  rec := attendance.NewReconciler(store, files)

SEE ALSO:
  - attendance/store.go: RosterStore interface
  - attendance/store/memory.go: In-memory roster
*/
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/attendance-engine/attendance"
)

// Store implements attendance.RosterStore using SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	today func() attendance.Date
}

var _ attendance.RosterStore = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// Each connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an already-open handle and migrates it.
func NewWithDB(db *sql.DB) (*Store, error) {
	store := &Store{db: db, today: attendance.Today}
	if err := store.migrate(); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return store, nil
}

// WithClock overrides "today" for default creation dates.
func (s *Store) WithClock(today func() attendance.Date) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.today = today
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		creation_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_name ON students(name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER STORE
// =============================================================================

func (s *Store) AddStudent(ctx context.Context, name string, creationDate attendance.Date) (attendance.StudentIdentity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return attendance.StudentIdentity{}, &attendance.ValidationError{Field: "name", Reason: "name must not be blank"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creationDate = creationDate.OrToday(s.today)
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO students (name, creation_date, created_at) VALUES (?, ?, ?)",
		name, creationDate.String(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return attendance.StudentIdentity{}, errors.Wrap(err, "failed to insert student")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return attendance.StudentIdentity{}, errors.Wrap(err, "failed to read student id")
	}

	return attendance.StudentIdentity{
		ID:           attendance.StudentID(id),
		Name:         name,
		CreationDate: creationDate,
	}, nil
}

func (s *Store) Get(ctx context.Context, id attendance.StudentID) (attendance.StudentIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		sid     int64
		name    string
		created string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, creation_date FROM students WHERE id = ?",
		int64(id),
	).Scan(&sid, &name, &created)

	if errors.Is(err, sql.ErrNoRows) {
		return attendance.StudentIdentity{}, &attendance.NotFoundError{StudentID: id}
	}
	if err != nil {
		return attendance.StudentIdentity{}, errors.Wrapf(err, "failed to load student %d", id)
	}
	return toIdentity(sid, name, created)
}

func (s *Store) ListAll(ctx context.Context) ([]attendance.StudentIdentity, error) {
	return s.query(ctx, "SELECT id, name, creation_date FROM students ORDER BY id")
}

// SearchByName matches with instr(lower(...)); SQLite's lower() folds ASCII only.
func (s *Store) SearchByName(ctx context.Context, substring string) ([]attendance.StudentIdentity, error) {
	term := strings.TrimSpace(substring)
	if term == "" {
		return s.ListAll(ctx)
	}
	return s.query(ctx,
		"SELECT id, name, creation_date FROM students WHERE instr(lower(name), lower(?)) > 0 ORDER BY id",
		term,
	)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count students")
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]attendance.StudentIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query students")
	}
	defer rows.Close()

	students := []attendance.StudentIdentity{}
	for rows.Next() {
		var (
			id      int64
			name    string
			created string
		)
		if err := rows.Scan(&id, &name, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan student")
		}
		st, err := toIdentity(id, name, created)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func toIdentity(id int64, name, created string) (attendance.StudentIdentity, error) {
	d, err := attendance.ParseDate(created)
	if err != nil {
		return attendance.StudentIdentity{}, errors.Wrapf(err, "student %d has corrupt creation_date", id)
	}
	return attendance.StudentIdentity{
		ID:           attendance.StudentID(id),
		Name:         name,
		CreationDate: d,
	}, nil
}
