package service

import (
	"sync"

	"github.com/google/uuid"
)

// eventLocks serializes seat mutations per event. Reservations on
// different events never contend; two attempts on the same event run
// their whole check-charge-commit section one after the other. Entries
// are never removed: the set of events is small and a mutex is cheap.
type eventLocks struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func newEventLocks() *eventLocks {
	return &eventLocks{}
}

// Lock acquires the event's mutex and returns its unlock function.
func (l *eventLocks) Lock(eventID uuid.UUID) func() {
	mu, _ := l.locks.LoadOrStore(eventID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
