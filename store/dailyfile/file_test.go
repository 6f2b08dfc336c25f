package dailyfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *Store {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func rec(id int64, name string, status attendance.Status, d attendance.Date) attendance.Record {
	return attendance.Record{
		StudentID:      attendance.StudentID(id),
		Name:           name,
		Status:         status,
		AttendanceDate: d,
		CreationDate:   jan10,
	}
}

func writeRaw(t *testing.T, s *Store, d attendance.Date, content string) {
	require.NoError(t, os.WriteFile(s.Path(d), []byte(content), 0o644))
}

// =============================================================================
// OPEN
// =============================================================================

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "attendance")
	s, err := Open(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, s.Dir())
}

func TestOpen_FailsWhenPathIsAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "attendance_2024-01-15.csv", FileName(jan15))
}

// =============================================================================
// READ
// =============================================================================

func TestReadAll_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records, err := s.ReadAll(ctx, jan15)
	require.NoError(t, err)
	assert.Empty(t, records)

	exists, err := s.Exists(ctx, jan15)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadAll_SkipsMalformedLines(t *testing.T) {
	// GIVEN: A file mixing all three schemas with garbage lines in between
	s := newTestStore(t)
	writeRaw(t, s, jan15, Header+"\n"+
		"2024-01-15,3,Cy,PRESENT,2024-01-10\n"+
		"this is not a record\n"+
		"\n"+
		"2024-01-15,2,Bo,ABSENT\n"+
		"2024-01-15,x,Bad,PRESENT,2024-01-10\n"+
		"1,Ann,present\n")

	// WHEN: Reading the day
	records, err := s.ReadAll(context.Background(), jan15)

	// THEN: The three good lines survive, sorted by id
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, attendance.StudentID(1), records[0].StudentID)
	assert.Equal(t, jan15, records[0].CreationDate)
	assert.Equal(t, attendance.StudentID(2), records[1].StudentID)
	assert.Equal(t, jan15, records[1].CreationDate)
	assert.Equal(t, attendance.StudentID(3), records[2].StudentID)
	assert.Equal(t, jan10, records[2].CreationDate)
}

func TestReadAll_StrayQuotesKeepNeighbours(t *testing.T) {
	// GIVEN: A hand-edited file with bare quotes inside two names
	s := newTestStore(t)
	writeRaw(t, s, jan15, Header+"\n"+
		"2024-01-15,1,Ann\"x,PRESENT,2024-01-10\n"+
		"2024-01-15,2,Bo,ABSENT,2024-01-10\n"+
		"2024-01-15,3,Cy\"z,PRESENT,2024-01-10\n")

	// WHEN: Reading the day
	records, err := s.ReadAll(context.Background(), jan15)

	// THEN: All three records survive, quotes kept literally
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, `Ann"x`, records[0].Name)
	assert.Equal(t, "Bo", records[1].Name)
	assert.Equal(t, attendance.StatusAbsent, records[1].Status)
	assert.Equal(t, `Cy"z`, records[2].Name)
}

func TestReadAll_UnbalancedQuotedNameDoesNotHideGoodLines(t *testing.T) {
	// GIVEN: An unterminated quoted name, a good line, then a quoted name
	// whose opening quote would otherwise close the first one
	s := newTestStore(t)
	writeRaw(t, s, jan15, Header+"\n"+
		"2024-01-15,1,\"Broken,PRESENT,2024-01-10\n"+
		"2024-01-15,2,Bo,ABSENT,2024-01-10\n"+
		"2024-01-15,3,\"Smith, Cy\",PRESENT,2024-01-10\n")

	records, err := s.ReadAll(context.Background(), jan15)

	// THEN: Only the broken line is lost
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.StudentID(2), records[0].StudentID)
	assert.Equal(t, "Smith, Cy", records[1].Name)
}

func TestReadAll_DuplicateIDLastLineWins(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, s, jan15, Header+"\n"+
		"2024-01-15,1,Ann,PRESENT,2024-01-10\n"+
		"2024-01-15,1,Ann,ABSENT,2024-01-10\n")

	records, err := s.ReadAll(context.Background(), jan15)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StatusAbsent, records[0].Status)
}

func TestReadAll_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ReadAll(ctx, jan15)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// WRITE
// =============================================================================

func TestWriteAll_CreatesFileWithHeader(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WriteAll(ctx, jan15, []attendance.Record{
		rec(2, "Bo", attendance.StatusAbsent, jan15),
		rec(1, "Ann", attendance.StatusPresent, jan15),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path(jan15))
	require.NoError(t, err)
	assert.Equal(t, Header+"\n"+
		"2024-01-15,1,Ann,PRESENT,2024-01-10\n"+
		"2024-01-15,2,Bo,ABSENT,2024-01-10\n", string(data))

	info, err := os.Stat(s.Path(jan15))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())
}

func TestWriteAll_MergesByStudentID(t *testing.T) {
	// GIVEN: A file with students 1, 2, 3
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteAll(ctx, jan15, []attendance.Record{
		rec(1, "Ann", attendance.StatusPresent, jan15),
		rec(2, "Bo", attendance.StatusPresent, jan15),
		rec(3, "Cy", attendance.StatusPresent, jan15),
	}))

	// WHEN: Writing a new status for 2 and a first record for 4
	require.NoError(t, s.WriteAll(ctx, jan15, []attendance.Record{
		rec(2, "Bo", attendance.StatusAbsent, jan15),
		rec(4, "Di", attendance.StatusAbsent, jan15),
	}))

	// THEN: 1 and 3 are untouched, 2 is replaced, 4 is added
	records, err := s.ReadAll(ctx, jan15)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, attendance.StatusPresent, records[0].Status)
	assert.Equal(t, attendance.StatusAbsent, records[1].Status)
	assert.Equal(t, attendance.StatusPresent, records[2].Status)
	assert.Equal(t, attendance.StudentID(4), records[3].StudentID)
}

func TestWriteAll_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	batch := []attendance.Record{
		rec(1, "Ann", attendance.StatusPresent, jan15),
		rec(2, "Smith, John", attendance.StatusAbsent, jan15),
	}

	require.NoError(t, s.WriteAll(ctx, jan15, batch))
	first, err := os.ReadFile(s.Path(jan15))
	require.NoError(t, err)

	require.NoError(t, s.WriteAll(ctx, jan15, batch))
	second, err := os.ReadFile(s.Path(jan15))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestWriteAll_UpgradesLegacyFile(t *testing.T) {
	// GIVEN: A legacy B file
	s := newTestStore(t)
	ctx := context.Background()
	writeRaw(t, s, jan15, "student_id,student_name,attendance_status\n1,Ann,PRESENT\n")

	// WHEN: Any write touches the day
	require.NoError(t, s.WriteAll(ctx, jan15, []attendance.Record{
		rec(2, "Bo", attendance.StatusAbsent, jan15),
	}))

	// THEN: The whole file is rewritten in the current schema
	data, err := os.ReadFile(s.Path(jan15))
	require.NoError(t, err)
	assert.Equal(t, Header+"\n"+
		"2024-01-15,1,Ann,PRESENT,2024-01-15\n"+
		"2024-01-15,2,Bo,ABSENT,2024-01-10\n", string(data))
}

func TestWriteAll_FillsZeroAttendanceDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteAll(ctx, jan15, []attendance.Record{
		{StudentID: 1, Name: "Ann", Status: attendance.StatusPresent},
	}))

	records, err := s.ReadAll(ctx, jan15)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, jan15, records[0].AttendanceDate)
	assert.Equal(t, jan15, records[0].CreationDate)
}

func TestWriteAll_RejectsInvalidRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WriteAll(ctx, jan15, []attendance.Record{rec(0, "Zero", attendance.StatusPresent, jan15)})
	assert.True(t, attendance.IsClientError(err))

	err = s.WriteAll(ctx, jan15, []attendance.Record{rec(1, "Ann", attendance.StatusUnset, jan15)})
	assert.True(t, attendance.IsClientError(err))

	exists, err := s.Exists(ctx, jan15)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteAll_ConcurrentWritersSameDate_NoLostUpdate(t *testing.T) {
	// GIVEN: 50 writers each saving a different student on the same day
	s := newTestStore(t)
	ctx := context.Background()
	const writers = 50

	var wg sync.WaitGroup
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			err := s.WriteAll(ctx, jan15, []attendance.Record{
				rec(id, fmt.Sprintf("Student %d", id), attendance.StatusPresent, jan15),
			})
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	// THEN: Every write survived the read-merge-rewrite race
	records, err := s.ReadAll(ctx, jan15)
	require.NoError(t, err)
	assert.Len(t, records, writers)
}

// =============================================================================
// REMOVE / DELETE
// =============================================================================

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteAll(ctx, jan15, []attendance.Record{
		rec(1, "Ann", attendance.StatusPresent, jan15),
		rec(2, "Bo", attendance.StatusAbsent, jan15),
	}))

	require.NoError(t, s.Remove(ctx, jan15, 1))

	records, err := s.ReadAll(ctx, jan15)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StudentID(2), records[0].StudentID)
}

func TestRemove_MissingFileIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Remove(ctx, jan15, 1))

	exists, err := s.Exists(ctx, jan15)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoveEverywhere(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, d := range []attendance.Date{jan10, jan15} {
		require.NoError(t, s.WriteAll(ctx, d, []attendance.Record{
			rec(1, "Ann", attendance.StatusPresent, d),
			rec(2, "Bo", attendance.StatusAbsent, d),
		}))
	}

	require.NoError(t, s.RemoveEverywhere(ctx, 2))

	for _, d := range []attendance.Date{jan10, jan15} {
		records, err := s.ReadAll(ctx, d)
		require.NoError(t, err)
		require.Len(t, records, 1, d.String())
		assert.Equal(t, attendance.StudentID(1), records[0].StudentID)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteAll(ctx, jan15, []attendance.Record{
		rec(1, "Ann", attendance.StatusPresent, jan15),
	}))

	deleted, err := s.Delete(ctx, jan15)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, jan15)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// =============================================================================
// LIST DATES
// =============================================================================

func TestListDates_MostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	days := []attendance.Date{jan10, jan15, attendance.MustParseDate("2023-12-31")}
	for _, d := range days {
		require.NoError(t, s.WriteAll(ctx, d, []attendance.Record{
			rec(1, "Ann", attendance.StatusPresent, d),
		}))
	}
	// Noise that must be ignored
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "attendance_garbage.csv"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "attendance_2024-02-01.csv"), 0o755))

	dates, err := s.ListDates(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.Equal(t, "2024-01-15", dates[0].String())
	assert.Equal(t, "2024-01-10", dates[1].String())
	assert.Equal(t, "2023-12-31", dates[2].String())
}

func TestListDates_EmptyDirectory(t *testing.T) {
	s := newTestStore(t)
	dates, err := s.ListDates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dates)
}
