// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// memoryEntry implements jetstream.KeyValueEntry
type memoryEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
}

func (m *memoryEntry) Key() string                     { return m.key }
func (m *memoryEntry) Value() []byte                   { return m.value }
func (m *memoryEntry) Revision() uint64                { return m.revision }
func (m *memoryEntry) Created() time.Time              { return m.created }
func (m *memoryEntry) Delta() uint64                   { return 0 }
func (m *memoryEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }
func (m *memoryEntry) Bucket() string                  { return m.bucket }

// memoryKeyLister implements jetstream.KeyLister over a snapshot of keys
type memoryKeyLister struct {
	keys []string
}

func (m *memoryKeyLister) Keys() <-chan string {
	ch := make(chan string, len(m.keys))
	for _, key := range m.keys {
		ch <- key
	}
	close(ch)
	return ch
}

func (m *memoryKeyLister) Stop() error { return nil }

// InMemoryKeyValue is a process-local INatsKeyValue with the JetStream
// revision semantics. It backs the memory store backend and the tests.
type InMemoryKeyValue struct {
	bucket string

	mu       sync.Mutex
	entries  map[string]*memoryEntry
	sequence uint64

	// failWith makes every call return the error when set (tests only).
	failWith error
}

var _ INatsKeyValue = (*InMemoryKeyValue)(nil)

// NewInMemoryKeyValue creates an empty in-memory bucket
func NewInMemoryKeyValue(bucket string) *InMemoryKeyValue {
	return &InMemoryKeyValue{
		bucket:  bucket,
		entries: make(map[string]*memoryEntry),
	}
}

func (m *InMemoryKeyValue) ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &memoryKeyLister{keys: keys}, nil
}

func (m *InMemoryKeyValue) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	entry, ok := m.entries[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	copied := *entry
	copied.value = append([]byte(nil), entry.value...)
	return &copied, nil
}

func (m *InMemoryKeyValue) Put(ctx context.Context, key string, data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return 0, m.failWith
	}
	return m.store(key, data), nil
}

func (m *InMemoryKeyValue) Update(ctx context.Context, key string, data []byte, expectedRevision uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return 0, m.failWith
	}

	entry, exists := m.entries[key]
	switch {
	case expectedRevision == 0 && exists:
		return 0, fmt.Errorf("nats: wrong last sequence: %d", entry.revision)
	case expectedRevision != 0 && !exists:
		return 0, jetstream.ErrKeyNotFound
	case exists && entry.revision != expectedRevision:
		return 0, fmt.Errorf("nats: wrong last sequence: %d", entry.revision)
	}
	return m.store(key, data), nil
}

// store must be called with mu held. Revisions are bucket-wide sequences like JetStream's.
func (m *InMemoryKeyValue) store(key string, data []byte) uint64 {
	m.sequence++
	m.entries[key] = &memoryEntry{
		bucket:   m.bucket,
		key:      key,
		value:    append([]byte(nil), data...),
		revision: m.sequence,
		created:  time.Now().UTC(),
	}
	return m.sequence
}

// Len returns the number of keys in the bucket
func (m *InMemoryKeyValue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// setFailure makes subsequent calls fail with err, nil clears it.
func (m *InMemoryKeyValue) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}
