// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// RecentWallet is the recently used wallet pointer. It is loaded from the
// secret store when the facade starts and changed only by
// SetRecentlyUsedWallet and Delete.
type RecentWallet struct {
	mu   sync.RWMutex
	addr fn.Option[wallet.Address]
}

func loadRecentWallet(secrets secretstore.Store) (*RecentWallet, error) {
	v, err := secrets.Get(recentKey)
	if err != nil {
		return nil, err
	}

	r := &RecentWallet{addr: fn.None[wallet.Address]()}
	var parseErr error
	v.WhenSome(func(b []byte) {
		addr, err := wallet.ParseAddress(string(b))
		if err != nil {
			parseErr = err
			return
		}
		r.addr = fn.Some(addr)
	})
	if parseErr != nil {
		return nil, fmt.Errorf("stored pointer: %w", parseErr)
	}
	return r, nil
}

// Address returns the raw pointer without checking the wallet still exists.
func (r *RecentWallet) Address() fn.Option[wallet.Address] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.addr
}

func (r *RecentWallet) set(secrets secretstore.Store, addr fn.Option[wallet.Address]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if addr.IsSome() {
		a := addr.UnwrapOr(wallet.Address{})
		err = secrets.Set(recentKey, []byte(a.Hex()), secretstore.WhenUnlockedThisDeviceOnly)
	} else {
		err = secrets.Delete(recentKey)
	}
	if err != nil {
		return err
	}
	r.addr = addr
	return nil
}

func (r *RecentWallet) clearIf(secrets secretstore.Store, addr wallet.Address) error {
	cur := r.Address()
	if cur.IsNone() || cur.UnwrapOr(wallet.Address{}) != addr {
		return nil
	}
	return r.set(secrets, fn.None[wallet.Address]())
}

// RecentlyUsedWallet returns the recently used wallet if it still exists.
func (k *Keystore) RecentlyUsedWallet() fn.Option[wallet.Wallet] {
	ptr := k.recent.Address()
	if ptr.IsNone() {
		return fn.None[wallet.Wallet]()
	}
	addr := ptr.UnwrapOr(wallet.Address{})

	k.mu.Lock()
	defer k.mu.Unlock()
	w, err := k.lookupLocked(addr)
	if err != nil {
		k.logger.Warn("recently used wallet lookup failed", "error", err)
		return fn.None[wallet.Wallet]()
	}
	return w
}

// SetRecentlyUsedWallet records w (or clears the pointer for None) and
// persists it.
func (k *Keystore) SetRecentlyUsedWallet(w fn.Option[wallet.Wallet]) error {
	addr := fn.None[wallet.Address]()
	w.WhenSome(func(w wallet.Wallet) {
		addr = fn.Some(w.Address())
	})

	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.recent.set(k.secrets, addr); err != nil {
		return fmt.Errorf("%w: save recently used wallet: %w", ErrStorageFailure, err)
	}
	return nil
}
