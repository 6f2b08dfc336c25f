/*
seed.go - Sample roster for demos and local development

PURPOSE:
  Preloads a fixed roster so a fresh process has something to show.
  Enabled with seed.sample_students; never runs against a non-empty roster.

SEE ALSO:
  - cmd/server/main.go: calls SeedSampleStudents on startup
*/
package attendance

import (
	"context"

	"github.com/cockroachdb/errors"
)

// SampleStudentNames is the demo roster.
var SampleStudentNames = []string{
	"John Smith", "Emma Johnson", "Michael Brown", "Sophia Davis",
	"James Wilson", "Olivia Martinez", "William Anderson", "Ava Taylor",
	"Benjamin Thomas", "Isabella Garcia", "Lucas Rodriguez", "Mia Lee",
	"Mason White", "Charlotte Harris", "Ethan Clark", "Amelia Lewis",
	"Alexander Walker", "Harper Hall", "Daniel Allen", "Evelyn Young",
}

// SeedSampleStudents adds SampleStudentNames created on creationDate.
// Returns the number of students added; 0 if the roster was not empty.
func SeedSampleStudents(ctx context.Context, roster RosterStore, creationDate Date) (int, error) {
	n, err := roster.Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count roster")
	}
	if n > 0 {
		return 0, nil
	}
	for i, name := range SampleStudentNames {
		if _, err := roster.AddStudent(ctx, name, creationDate); err != nil {
			return i, errors.Wrapf(err, "failed to seed %q", name)
		}
	}
	return len(SampleStudentNames), nil
}
