// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package secretstore

import (
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// MemoryStore keeps values in process memory. The availability flag
// simulates a locked device.
type MemoryStore struct {
	mu        sync.RWMutex
	values    map[string][]byte
	available bool
}

// NewMemoryStore returns an empty, available store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:    make(map[string][]byte),
		available: true,
	}
}

// SetAvailable toggles whether the store behaves as unlocked.
func (m *MemoryStore) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

func (m *MemoryStore) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

func (m *MemoryStore) Set(key string, value []byte, access AccessPolicy) error {
	if err := checkPolicy(access); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return ErrLocked
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(key string) (fn.Option[[]byte], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.available {
		return fn.None[[]byte](), ErrLocked
	}
	v, ok := m.values[key]
	if !ok {
		return fn.None[[]byte](), nil
	}
	return fn.Some(append([]byte(nil), v...)), nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return ErrLocked
	}
	delete(m.values, key)
	return nil
}

// Keys returns the stored key names, for tests and diagnostics.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}
