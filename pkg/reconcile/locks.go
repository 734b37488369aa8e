package reconcile

import "sync"

// keyLocks hands out one mutex per identity key so merges for the same
// entity serialize while unrelated entities proceed concurrently. Mutexes
// are created lazily and never released; the key space is bounded by the
// entity population.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns the unlock function.
func (k *keyLocks) acquire(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
