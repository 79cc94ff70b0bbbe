// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/aplane-algo/ethwallet/internal/legacy"
	"github.com/aplane-algo/ethwallet/internal/prefs"
	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

func newLegacyFixture(t *testing.T) (*fixture, *legacy.FileKeystore) {
	t.Helper()
	secrets := secretstore.NewMemoryStore()
	fk, err := legacy.NewFileKeystore(t.TempDir(), secrets, legacy.LightScryptParams, nil)
	require.NoError(t, err)

	f := &fixture{secrets: secrets, lists: prefs.NewMemoryStore()}
	f.ks, err = New(testConfig, secrets, f.lists, WithLegacy(fk))
	require.NoError(t, err)
	t.Cleanup(f.ks.Close)
	return f, fk
}

func stageLegacyAccount(t *testing.T, fk *legacy.FileKeystore) wallet.EthereumAccount {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	acc, err := fk.Import(crypto.FromECDSA(priv), "legacy")
	require.NoError(t, err)
	return acc
}

func TestMigrateFromLegacyFiles(t *testing.T) {
	f, fk := newLegacyFixture(t)
	ctx := context.Background()

	a := stageLegacyAccount(t, fk)
	b := stageLegacyAccount(t, fk)
	lost := stageLegacyAccount(t, fk)

	// Password gone: this account cannot be migrated.
	require.NoError(t, f.secrets.Delete(legacy.PasswordKey(lost.Address)))

	report, err := f.ks.MigrateFromLegacyFiles(ctx)
	require.NoError(t, err)
	require.Equal(t, SkipAndContinue, report.Policy)
	require.False(t, report.AlreadyMigrated)
	require.ElementsMatch(t, []wallet.EthereumAccount{a, b}, report.Imported)
	require.Equal(t, []wallet.EthereumAccount{lost}, report.Skipped)

	ws, err := f.ks.Wallets()
	require.NoError(t, err)
	require.ElementsMatch(t, []wallet.Wallet{wallet.Real(a), wallet.Real(b)}, ws)

	migrated, err := f.lists.Migrated()
	require.NoError(t, err)
	require.True(t, migrated)

	// New legacy data appearing later is not picked up.
	stageLegacyAccount(t, fk)
	again, err := f.ks.MigrateFromLegacyFiles(ctx)
	require.NoError(t, err)
	require.True(t, again.AlreadyMigrated)
	require.Empty(t, again.Imported)
	require.Equal(t, 2, walletCount(t, f.ks))
}

func TestMigrateWithoutLegacyStoreSetsFlag(t *testing.T) {
	f := newFixture(t)

	report, err := f.ks.MigrateFromLegacyFiles(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Imported)

	migrated, err := f.lists.Migrated()
	require.NoError(t, err)
	require.True(t, migrated)
}

func TestDeleteRemovesLegacyFile(t *testing.T) {
	f, fk := newLegacyFixture(t)
	acc := stageLegacyAccount(t, fk)

	_, err := f.ks.MigrateFromLegacyFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, fk.Accounts(), 1)

	require.NoError(t, f.ks.Delete(wallet.Real(acc)))
	require.Empty(t, fk.Accounts())
	require.Equal(t, 0, walletCount(t, f.ks))
}
