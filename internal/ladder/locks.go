package ladder

import (
	"sync"

	"github.com/AdamBeresnev/padel-league/internal/league"
)

// DivisionLocks serialises rank mutations per division. The zero value is ready to use.
type DivisionLocks struct {
	mu    sync.Mutex
	locks map[league.Division]*sync.Mutex
}

// Lock blocks until the division is free and returns its unlock func.
func (d *DivisionLocks) Lock(division league.Division) func() {
	d.mu.Lock()
	if d.locks == nil {
		d.locks = make(map[league.Division]*sync.Mutex)
	}
	m, ok := d.locks[division]
	if !ok {
		m = &sync.Mutex{}
		d.locks[division] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}
