package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
)

func testConfig(t *testing.T, backend string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Dir: filepath.Join(dir, "attendance")},
		Roster:  config.RosterConfig{Backend: backend, DBPath: filepath.Join(dir, "roster.db")},
		Seed:    config.SeedConfig{SampleStudents: true},
	}
}

func TestOpenReconciler_SeedsOnce(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			rec, closer, err := openReconciler(ctx, cfg, true)
			require.NoError(t, err)
			students, err := rec.ListStudents(ctx)
			require.NoError(t, err)
			assert.Len(t, students, len(attendance.SampleStudentNames))
			require.NoError(t, closer.Close())

			if backend != config.BackendSQLite {
				return
			}
			// Reopening a persistent roster does not seed it again
			rec, closer, err = openReconciler(ctx, cfg, true)
			require.NoError(t, err)
			defer closer.Close()
			students, err = rec.ListStudents(ctx)
			require.NoError(t, err)
			assert.Len(t, students, len(attendance.SampleStudentNames))
		})
	}
}

func TestOpenReconciler_NoSeedForReports(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendMemory)

	rec, closer, err := openReconciler(ctx, cfg, false)
	require.NoError(t, err)
	defer closer.Close()

	students, err := rec.ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestRenderReport(t *testing.T) {
	r := attendance.BuildReport(attendance.MustParseDate("2025-01-05"), []attendance.Entry{
		{StudentID: 1, Name: "Ann", Status: attendance.StatusPresent},
		{StudentID: 2, Name: "Ghost", Status: attendance.StatusAbsent, Orphan: true},
		{StudentID: 3, Name: "Cy"},
	})
	assert.NoError(t, renderReport(r))
}
