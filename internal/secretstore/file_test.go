// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package secretstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aplane-algo/ethwallet/internal/crypto"
)

var testPassphrase = []byte("device passphrase")

func TestFileStoreBehavesLikeStore(t *testing.T) {
	s, err := Init(t.TempDir(), testPassphrase)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreInitTwice(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, testPassphrase)
	require.NoError(t, err)

	_, err = Init(dir, testPassphrase)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestFileStoreOpenUninitialized(t *testing.T) {
	_, err := Open(t.TempDir())
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir, testPassphrase)
	require.NoError(t, err)
	require.NoError(t, s.Set("ethereumRawPrivateKey-0xabc", []byte("deadbeef"), WhenUnlockedThisDeviceOnly))

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.False(t, reopened.Available(), "opened store starts locked")
	require.Equal(t, 1, reopened.Len())

	_, err = reopened.Get("ethereumRawPrivateKey-0xabc")
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, reopened.Unlock(testPassphrase))
	got, err := reopened.Get("ethereumRawPrivateKey-0xabc")
	require.NoError(t, err)
	require.Equal(t, "deadbeef", string(got.UnwrapOr(nil)))
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, testPassphrase)
	require.NoError(t, err)

	s, err := Open(dir)
	require.NoError(t, err)
	require.ErrorIs(t, s.Unlock([]byte("guess")), crypto.ErrIncorrectPassphrase)
	require.False(t, s.Available())
}

func TestFileStoreLock(t *testing.T) {
	s, err := Init(t.TempDir(), testPassphrase)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte("v"), WhenUnlockedThisDeviceOnly))

	s.Lock()
	require.False(t, s.Available())
	require.ErrorIs(t, s.Set("k", []byte("v"), WhenUnlockedThisDeviceOnly), ErrLocked)
	require.ErrorIs(t, s.Delete("k"), ErrLocked)
}

func TestFileStoreNoPlaintextOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir, testPassphrase)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte("super-secret-value"), WhenUnlockedThisDeviceOnly))

	data, err := os.ReadFile(filepath.Join(dir, SecretsFile))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "super-secret-value"))

	info, err := os.Stat(filepath.Join(dir, SecretsFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStoreSeesOtherWriters(t *testing.T) {
	dir := t.TempDir()
	a, err := Init(dir, testPassphrase)
	require.NoError(t, err)

	b, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, b.Unlock(testPassphrase))

	require.NoError(t, a.Set("from-a", []byte("1"), WhenUnlockedThisDeviceOnly))
	require.NoError(t, b.Set("from-b", []byte("2"), WhenUnlockedThisDeviceOnly))

	// b reloaded before writing, so a's entry survived.
	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Len())
}

func TestFileStoreWatchReloads(t *testing.T) {
	dir := t.TempDir()
	a, err := Init(dir, testPassphrase)
	require.NoError(t, err)

	b, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, b.Unlock(testPassphrase))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 8)
	require.NoError(t, b.Watch(ctx, func(err error) { reloaded <- err }))

	require.NoError(t, a.Set("fresh", []byte("v"), WhenUnlockedThisDeviceOnly))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}

	got, err := b.Get("fresh")
	require.NoError(t, err)
	require.Equal(t, "v", string(got.UnwrapOr(nil)))
}
