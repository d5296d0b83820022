package bidding

import "sync"

// itemLocks hands out one mutex per item code. Entries are reference counted and removed once
// nobody holds or waits for them, so the map stays as small as the set of items being settled.
type itemLocks struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[string]*itemLock)}
}

// lock blocks until the item is free and returns the matching unlock
func (l *itemLocks) lock(itemCode string) func() {
	l.mu.Lock()
	il, ok := l.locks[itemCode]
	if !ok {
		il = &itemLock{}
		l.locks[itemCode] = il
	}
	il.refs++
	l.mu.Unlock()

	il.mu.Lock()

	return func() {
		il.mu.Unlock()

		l.mu.Lock()
		il.refs--
		if il.refs == 0 {
			delete(l.locks, itemCode)
		}
		l.mu.Unlock()
	}
}

func (l *itemLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
