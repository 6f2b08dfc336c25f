package dailyfile

import (
	"sync"

	"github.com/warp/attendance-engine/attendance"
)

// dateLocks hands out one RWMutex per calendar date.
// Entries are never evicted; there is one per day that was ever touched.
type dateLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newDateLocks() *dateLocks {
	return &dateLocks{locks: make(map[string]*sync.RWMutex)}
}

func (l *dateLocks) get(d attendance.Date) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := d.String()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[key] = m
	}
	return m
}
