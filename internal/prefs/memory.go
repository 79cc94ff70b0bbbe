// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package prefs

import (
	"slices"
	"sync"

	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	owned    []wallet.Address
	watch    []wallet.Address
	migrated bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) OwnedAddresses() ([]wallet.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.owned), nil
}

func (m *MemoryStore) AddOwned(addr wallet.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owned = appendUnique(m.owned, addr)
	return nil
}

func (m *MemoryStore) RemoveOwned(addr wallet.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owned = slices.DeleteFunc(m.owned, func(a wallet.Address) bool { return a == addr })
	return nil
}

func (m *MemoryStore) WatchAddresses() ([]wallet.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.watch), nil
}

func (m *MemoryStore) AddWatch(addr wallet.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watch = appendUnique(m.watch, addr)
	return nil
}

func (m *MemoryStore) RemoveWatch(addr wallet.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watch = slices.DeleteFunc(m.watch, func(a wallet.Address) bool { return a == addr })
	return nil
}

func (m *MemoryStore) Migrated() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.migrated, nil
}

func (m *MemoryStore) SetMigrated() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrated = true
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func appendUnique(list []wallet.Address, addr wallet.Address) []wallet.Address {
	if slices.Contains(list, addr) {
		return list
	}
	return append(list, addr)
}
