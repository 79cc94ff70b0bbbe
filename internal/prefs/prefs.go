// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package prefs persists the non-secret wallet lists: owned addresses, watch
// addresses, and the one-time legacy migration flag. Lists keep insertion
// order and never hold duplicates.
package prefs

import (
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// Store holds the ordered address lists.
type Store interface {
	OwnedAddresses() ([]wallet.Address, error)
	AddOwned(addr wallet.Address) error
	RemoveOwned(addr wallet.Address) error

	WatchAddresses() ([]wallet.Address, error)
	AddWatch(addr wallet.Address) error
	RemoveWatch(addr wallet.Address) error

	Migrated() (bool, error)
	SetMigrated() error

	Close() error
}
