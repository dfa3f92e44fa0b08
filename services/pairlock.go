package services

import (
	"sort"
	"strings"
	"sync"
)

// keyedLock serializes multi-record write sequences touching the same
// entities. The store gives us no multi-document transaction, so every
// two-write sequence (friend accept, author back-reference append) runs
// under a lock derived from the ids it mutates. Locks are never removed from
// the map; the key space is bounded by the number of entities ever touched.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use. The returned
// function releases it.
func (k *keyedLock) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// pairKey builds an order-independent key for a pair of entity ids, so both
// directions of a relationship mutation contend on the same lock.
func pairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}
