package rag

import "sync"

// CollectionPolicy decides what happens when a collection does not exist.
type CollectionPolicy struct {
	// CreateOnWrite creates missing collections when indexing.
	CreateOnWrite bool
	// CreateOnRead creates missing collections when querying. Enabling it
	// turns a mistyped collection name into an empty result set.
	CreateOnRead bool
}

// DefaultPolicy creates lazily on write and fails on read.
var DefaultPolicy = CollectionPolicy{CreateOnWrite: true, CreateOnRead: false}

// keyedMutex hands out one mutex per key. Entries are never evicted; the key
// space is the set of collection names.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (k *keyedMutex) Lock(key string) func() {
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
