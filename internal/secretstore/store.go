// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package secretstore is the device-protected key/value store that holds
// private keys, legacy passwords and the recently used wallet pointer.
//
// Values are only readable while the store is available (the device is
// unlocked) and never leave the device.
package secretstore

import (
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// AccessPolicy restricts when and where a stored value may be read.
type AccessPolicy int

const (
	// WhenUnlockedThisDeviceOnly makes a value readable only while the store
	// is unlocked, and excludes it from any sync or backup.
	WhenUnlockedThisDeviceOnly AccessPolicy = iota + 1
)

func (p AccessPolicy) String() string {
	switch p {
	case WhenUnlockedThisDeviceOnly:
		return "when-unlocked-this-device-only"
	default:
		return fmt.Sprintf("AccessPolicy(%d)", int(p))
	}
}

var (
	// ErrLocked is returned by every operation on a locked store.
	ErrLocked = errors.New("secret store is locked")

	// ErrProtectedStorageUnavailable is returned by consumers that refuse
	// to start on top of an unavailable store.
	ErrProtectedStorageUnavailable = errors.New("protected storage unavailable")

	// ErrUnsupportedAccessPolicy rejects any policy that could let a value
	// leave the device.
	ErrUnsupportedAccessPolicy = errors.New("unsupported access policy")

	// ErrNotInitialized is returned when opening a directory without a store.
	ErrNotInitialized = errors.New("secret store not initialized")

	// ErrAlreadyInitialized is returned by Init on an existing store.
	ErrAlreadyInitialized = errors.New("secret store already initialized")
)

// Store is a device-protected key/value store.
type Store interface {
	// Set stores value under key with the given policy, replacing any
	// previous value.
	Set(key string, value []byte, access AccessPolicy) error

	// Get returns the value for key, or None if absent.
	Get(key string) (fn.Option[[]byte], error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Available reports whether protected data can currently be read.
	Available() bool
}

func checkPolicy(access AccessPolicy) error {
	if access != WhenUnlockedThisDeviceOnly {
		return fmt.Errorf("%w: %s", ErrUnsupportedAccessPolicy, access)
	}
	return nil
}

// Prefixed wraps store so every key is stored under prefix+key. Several
// keystores can share one backend by using distinct prefixes.
func Prefixed(store Store, prefix string) Store {
	if prefix == "" {
		return store
	}
	return &prefixed{inner: store, prefix: prefix}
}

type prefixed struct {
	inner  Store
	prefix string
}

func (p *prefixed) Set(key string, value []byte, access AccessPolicy) error {
	return p.inner.Set(p.prefix+key, value, access)
}

func (p *prefixed) Get(key string) (fn.Option[[]byte], error) {
	return p.inner.Get(p.prefix + key)
}

func (p *prefixed) Delete(key string) error {
	return p.inner.Delete(p.prefix + key)
}

func (p *prefixed) Available() bool {
	return p.inner.Available()
}
