package contacts

import (
	"sync"

	"github.com/agendacontatos/agenda.go/pkg/models"
)

// keyedMutex is a set of mutexes created on demand per ID and dropped when
// nobody holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[models.ID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[models.ID]*refMutex)}
}

func (k *keyedMutex) lock(id models.ID) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
