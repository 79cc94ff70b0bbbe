// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keystore is the wallet facade: it owns the secret store and the
// address lists, and is the only component that writes either.
//
// All mutations and duplicate checks run under one mutex, so concurrent
// imports of the same key or address cannot both succeed. Signing reads the
// key under the lock and signs outside it.
package keystore

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/legacy"
	"github.com/aplane-algo/ethwallet/internal/prefs"
	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// Secret store key names.
const (
	privateKeyPrefix = "ethereumRawPrivateKey-"
	recentKey        = "recentlyUsedAddress"
)

func privateKeyName(addr wallet.Address) string {
	return privateKeyPrefix + addr.Hex()
}

// Config holds facade settings.
type Config struct {
	// ExportScrypt is the scrypt cost of exported key files.
	ExportScrypt legacy.ScryptParams
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{ExportScrypt: legacy.StandardScryptParams}
}

// Keystore is the wallet facade.
type Keystore struct {
	cfg     Config
	secrets secretstore.Store
	prefs   prefs.Store
	legacy  *legacy.FileKeystore
	logger  *slog.Logger
	random  io.Reader

	dispatcher    Dispatcher
	ownDispatcher *MainQueue
	workers       *fn.GoroutineManager

	// mu serializes every mutation and duplicate check.
	mu     sync.Mutex
	recent *RecentWallet
}

// Option configures a Keystore.
type Option func(*Keystore)

// WithLegacy attaches the directory of legacy key files, used by migration
// and by Delete.
func WithLegacy(l *legacy.FileKeystore) Option {
	return func(k *Keystore) {
		k.legacy = l
	}
}

// WithDispatcher sets where async completions are delivered. Without one the
// keystore runs its own MainQueue.
func WithDispatcher(d Dispatcher) Option {
	return func(k *Keystore) {
		k.dispatcher = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(k *Keystore) {
		k.logger = l
	}
}

// WithRandom replaces the key generation entropy source. Tests only.
func WithRandom(r io.Reader) Option {
	return func(k *Keystore) {
		k.random = r
	}
}

// New builds the facade. It refuses to start when the secret store is
// unavailable.
func New(cfg Config, secrets secretstore.Store, lists prefs.Store, opts ...Option) (*Keystore, error) {
	if !secrets.Available() {
		return nil, ErrProtectedStorageUnavailable
	}

	k := &Keystore{
		cfg:     cfg,
		secrets: secrets,
		prefs:   lists,
		logger:  slog.Default(),
		random:  rand.Reader,
		workers: fn.NewGoroutineManager(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.cfg.ExportScrypt.N == 0 {
		k.cfg.ExportScrypt = legacy.StandardScryptParams
	}

	recent, err := loadRecentWallet(secrets)
	if err != nil {
		return nil, fmt.Errorf("%w: load recently used wallet: %w", ErrStorageFailure, err)
	}
	k.recent = recent

	if k.dispatcher == nil {
		k.ownDispatcher = NewMainQueue()
		k.dispatcher = k.ownDispatcher
	}
	return k, nil
}

// Close waits for running async operations and stops the default
// dispatcher once their completions are delivered.
func (k *Keystore) Close() {
	k.workers.Stop()
	if k.ownDispatcher != nil {
		k.ownDispatcher.Stop()
	}
}

// Wallets lists owned wallets first, then watch wallets, each in the order
// they were added.
func (k *Keystore) Wallets() ([]wallet.Wallet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.walletsLocked()
}

func (k *Keystore) walletsLocked() ([]wallet.Wallet, error) {
	owned, err := k.prefs.OwnedAddresses()
	if err != nil {
		return nil, fmt.Errorf("%w: read owned addresses: %w", ErrStorageFailure, err)
	}
	watch, err := k.prefs.WatchAddresses()
	if err != nil {
		return nil, fmt.Errorf("%w: read watch addresses: %w", ErrStorageFailure, err)
	}

	out := make([]wallet.Wallet, 0, len(owned)+len(watch))
	for _, a := range owned {
		out = append(out, wallet.Real(wallet.EthereumAccount{Address: a}))
	}
	for _, a := range watch {
		out = append(out, wallet.Watch(a))
	}
	return out, nil
}

// HasWallets reports whether any wallet of either kind exists.
func (k *Keystore) HasWallets() bool {
	ws, err := k.Wallets()
	return err == nil && len(ws) > 0
}

// lookupLocked finds a wallet of either kind by address.
func (k *Keystore) lookupLocked(addr wallet.Address) (fn.Option[wallet.Wallet], error) {
	ws, err := k.walletsLocked()
	if err != nil {
		return fn.None[wallet.Wallet](), err
	}
	for _, w := range ws {
		if w.Address() == addr {
			return fn.Some(w), nil
		}
	}
	return fn.None[wallet.Wallet](), nil
}
