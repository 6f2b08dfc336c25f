// Package store provides in-process RosterStore implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// MEMORY ROSTER - In-memory implementation (default backend, tests)
// =============================================================================

// Memory guards the map and the id counter with one lock, so id assignment
// and insertion happen together.
type Memory struct {
	mu       sync.RWMutex
	students map[attendance.StudentID]attendance.StudentIdentity
	nextID   attendance.StudentID
	today    func() attendance.Date
}

// NewMemory returns an empty roster whose first id is 1.
func NewMemory() *Memory {
	return &Memory{
		students: make(map[attendance.StudentID]attendance.StudentIdentity),
		nextID:   1,
		today:    attendance.Today,
	}
}

// WithClock overrides "today" for default creation dates.
func (m *Memory) WithClock(today func() attendance.Date) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.today = today
	return m
}

func (m *Memory) AddStudent(_ context.Context, name string, creationDate attendance.Date) (attendance.StudentIdentity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return attendance.StudentIdentity{}, &attendance.ValidationError{Field: "name", Reason: "name must not be blank"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := attendance.StudentIdentity{
		ID:           m.nextID,
		Name:         name,
		CreationDate: creationDate.OrToday(m.today),
	}
	m.students[s.ID] = s
	m.nextID++
	return s, nil
}

func (m *Memory) Get(_ context.Context, id attendance.StudentID) (attendance.StudentIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[id]
	if !ok {
		return attendance.StudentIdentity{}, &attendance.NotFoundError{StudentID: id}
	}
	return s, nil
}

func (m *Memory) ListAll(_ context.Context) ([]attendance.StudentIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]attendance.StudentIdentity, 0, len(m.students))
	for _, s := range m.students {
		result = append(result, s)
	}
	sortByID(result)
	return result, nil
}

func (m *Memory) SearchByName(ctx context.Context, substring string) ([]attendance.StudentIdentity, error) {
	term := strings.ToLower(strings.TrimSpace(substring))
	if term == "" {
		return m.ListAll(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []attendance.StudentIdentity{}
	for _, s := range m.students {
		if strings.Contains(strings.ToLower(s.Name), term) {
			result = append(result, s)
		}
	}
	sortByID(result)
	return result, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

func sortByID(s []attendance.StudentIdentity) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}
