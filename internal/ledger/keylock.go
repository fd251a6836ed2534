// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package ledger

import "sync"

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLock hands out one mutex per key. Entries are dropped once no goroutine
// holds or waits on them so the map only grows with in-flight keys.
type keyLock struct {
	mu      sync.Mutex
	entries map[string]*keyLockEntry
}

func newKeyLock() *keyLock {
	return &keyLock{entries: make(map[string]*keyLockEntry)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyLock) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyLockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
