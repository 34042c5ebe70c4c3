package pkg

import "sync"

// KeyedMutex serializes work per key (e.g. per user) without a global lock.
// Entries are dropped once nobody holds or waits for them.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{
		locks: make(map[K]*keyedLock),
	}
}

// Lock blocks until the lock for key is held and returns the unlock func.
func (km *KeyedMutex[K]) Lock(key K) func() {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		km.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (km *KeyedMutex[K]) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
