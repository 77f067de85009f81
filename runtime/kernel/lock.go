package kernel

import (
	"sync"
	"sync/atomic"
)

// tableLock guards every field of every slot. The held flag backs the
// lock discipline checks; the mutex may be released by a goroutine other
// than the one that acquired it, which is how it crosses a context switch.
type tableLock struct {
	mux  sync.Mutex
	held atomic.Bool
}

func (l *tableLock) Lock() {
	l.mux.Lock()
	l.held.Store(true)
}

func (l *tableLock) Unlock() {
	l.held.Store(false)
	l.mux.Unlock()
}

func (l *tableLock) holding() bool {
	return l.held.Load()
}
