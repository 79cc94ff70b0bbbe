// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/aplane-algo/ethwallet/internal/prefs"
	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

var errDiskGone = errors.New("disk gone")

// brokenLists fails reads, writes or both with errDiskGone.
type brokenLists struct {
	*prefs.MemoryStore
	failReads  bool
	failWrites bool
}

func (b *brokenLists) OwnedAddresses() ([]wallet.Address, error) {
	if b.failReads {
		return nil, errDiskGone
	}
	return b.MemoryStore.OwnedAddresses()
}

func (b *brokenLists) WatchAddresses() ([]wallet.Address, error) {
	if b.failReads {
		return nil, errDiskGone
	}
	return b.MemoryStore.WatchAddresses()
}

func (b *brokenLists) AddWatch(addr wallet.Address) error {
	if b.failWrites {
		return errDiskGone
	}
	return b.MemoryStore.AddWatch(addr)
}

func (b *brokenLists) Migrated() (bool, error) {
	if b.failReads {
		return false, errDiskGone
	}
	return b.MemoryStore.Migrated()
}

func (b *brokenLists) SetMigrated() error {
	if b.failWrites {
		return errDiskGone
	}
	return b.MemoryStore.SetMigrated()
}

// brokenSecrets refuses writes.
type brokenSecrets struct {
	*secretstore.MemoryStore
}

func (brokenSecrets) Set(string, []byte, secretstore.AccessPolicy) error {
	return errDiskGone
}

func newBrokenFixture(t *testing.T, lists prefs.Store) *Keystore {
	t.Helper()
	ks, err := New(testConfig, secretstore.NewMemoryStore(), lists)
	require.NoError(t, err)
	t.Cleanup(ks.Close)
	return ks
}

func TestImportWatchStorageErrors(t *testing.T) {
	ctx := context.Background()
	addr := common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")

	lists := &brokenLists{MemoryStore: prefs.NewMemoryStore(), failWrites: true}
	ks := newBrokenFixture(t, lists)
	_, err := ks.Import(ctx, wallet.ImportWatch{Address: addr})
	require.ErrorIs(t, err, ErrFailedToImportPrivateKey)
	require.ErrorIs(t, err, errDiskGone)

	lists.failWrites = false
	lists.failReads = true
	_, err = ks.Import(ctx, wallet.ImportWatch{Address: addr})
	require.ErrorIs(t, err, ErrFailedToImportPrivateKey)
	require.ErrorIs(t, err, ErrStorageFailure)
}

func TestListAndMigrationStorageErrors(t *testing.T) {
	lists := &brokenLists{MemoryStore: prefs.NewMemoryStore(), failReads: true}
	ks := newBrokenFixture(t, lists)

	_, err := ks.Wallets()
	require.ErrorIs(t, err, ErrStorageFailure)
	require.ErrorIs(t, err, errDiskGone)

	_, err = ks.MigrateFromLegacyFiles(context.Background())
	require.ErrorIs(t, err, ErrStorageFailure)

	lists.failReads = false
	lists.failWrites = true
	_, err = ks.MigrateFromLegacyFiles(context.Background())
	require.ErrorIs(t, err, ErrStorageFailure)
}

func TestSetRecentlyUsedWalletStorageError(t *testing.T) {
	ks, err := New(testConfig, brokenSecrets{secretstore.NewMemoryStore()}, prefs.NewMemoryStore())
	require.NoError(t, err)
	defer ks.Close()

	addr := common.HexToAddress(testAddress)
	err = ks.SetRecentlyUsedWallet(fn.Some(wallet.Watch(addr)))
	require.ErrorIs(t, err, ErrStorageFailure)
	require.ErrorIs(t, err, errDiskGone)
	require.True(t, ks.recent.Address().IsNone())
}
