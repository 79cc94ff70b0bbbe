// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package prefs

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	addrB = common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
	addrC = common.HexToAddress("0xde0B295669a9FD93d5F28D9Ec85E40f4cb697BAe")
)

func stores(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"bolt": func() Store {
			s, err := OpenBolt(filepath.Join(t.TempDir(), "prefs.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestListsKeepOrderWithoutDuplicates(t *testing.T) {
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()

			require.NoError(t, s.AddOwned(addrB))
			require.NoError(t, s.AddOwned(addrA))
			require.NoError(t, s.AddOwned(addrB))
			require.NoError(t, s.AddWatch(addrC))

			owned, err := s.OwnedAddresses()
			require.NoError(t, err)
			require.Equal(t, []common.Address{addrB, addrA}, owned)

			watch, err := s.WatchAddresses()
			require.NoError(t, err)
			require.Equal(t, []common.Address{addrC}, watch)

			require.NoError(t, s.RemoveOwned(addrB))
			require.NoError(t, s.RemoveOwned(addrB))
			require.NoError(t, s.AddOwned(addrB))

			owned, err = s.OwnedAddresses()
			require.NoError(t, err)
			require.Equal(t, []common.Address{addrA, addrB}, owned)

			require.NoError(t, s.RemoveWatch(addrC))
			watch, err = s.WatchAddresses()
			require.NoError(t, err)
			require.Empty(t, watch)
		})
	}
}

func TestMigratedFlag(t *testing.T) {
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			migrated, err := s.Migrated()
			require.NoError(t, err)
			require.False(t, migrated)

			require.NoError(t, s.SetMigrated())
			migrated, err = s.Migrated()
			require.NoError(t, err)
			require.True(t, migrated)
		})
	}
}

func TestBoltPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.AddOwned(addrA))
	require.NoError(t, s.AddWatch(addrB))
	require.NoError(t, s.SetMigrated())
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()

	owned, err := s.OwnedAddresses()
	require.NoError(t, err)
	require.Equal(t, []common.Address{addrA}, owned)

	watch, err := s.WatchAddresses()
	require.NoError(t, err)
	require.Equal(t, []common.Address{addrB}, watch)

	migrated, err := s.Migrated()
	require.NoError(t, err)
	require.True(t, migrated)
}
