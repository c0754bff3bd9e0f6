package assets

import "sync"

// pathLocks serializes fetches that resolve to the same object key. Entries
// are dropped once the last waiter releases so the map stays bounded by the
// number of in-flight downloads.
type pathLocks struct {
	edit    sync.Mutex
	waiters map[string]int
	mutexes map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{
		waiters: make(map[string]int),
		mutexes: make(map[string]*sync.Mutex),
	}
}

func (l *pathLocks) Lock(key string) {
	l.edit.Lock()
	if l.mutexes[key] == nil {
		l.mutexes[key] = &sync.Mutex{}
	}
	l.waiters[key]++
	mu := l.mutexes[key]
	l.edit.Unlock()

	mu.Lock()
}

func (l *pathLocks) Unlock(key string) {
	l.edit.Lock()
	defer l.edit.Unlock()

	mu := l.mutexes[key]
	if mu == nil {
		return
	}

	mu.Unlock()
	l.waiters[key]--
	if l.waiters[key] <= 0 {
		delete(l.mutexes, key)
		delete(l.waiters, key)
	}
}
