package story

import "sync"

// keyLocks serializes work per string key. Synthesis holds the
// (person, chapter) lock for the duration of the LLM call so that
// concurrent requests for the same key cannot race: the loser of the
// race observes the winner's cached narrative instead of paying for a
// duplicate model call.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*lockEntry)}
}

// Lock acquires the lock for key and returns its unlock function.
func (k *keyLocks) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
