// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"errors"

	"github.com/aplane-algo/ethwallet/internal/secretstore"
)

// Keystore errors. Every failure returned by a Keystore wraps one of these,
// so callers can tell them apart with errors.Is.
var (
	// ErrDuplicateAccount means the address is already known as a wallet.
	ErrDuplicateAccount = errors.New("duplicate account")

	// ErrAccountNotFound means no key is stored for the account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrFailedToDecryptKey covers a wrong password or a corrupt key file.
	ErrFailedToDecryptKey = errors.New("failed to decrypt key")

	// ErrFailedToImportPrivateKey covers malformed documents and keys.
	ErrFailedToImportPrivateKey = errors.New("failed to import private key")

	ErrFailedToExportPrivateKey = errors.New("failed to export private key")
	ErrFailedToDeleteAccount    = errors.New("failed to delete account")
	ErrFailedToSignMessage      = errors.New("failed to sign message")
	ErrFailedToSignTransaction  = errors.New("failed to sign transaction")

	// ErrStorageFailure means the address lists, the migration flag or the
	// recently used pointer could not be read or written.
	ErrStorageFailure = errors.New("wallet storage failure")

	// ErrProtectedStorageUnavailable is returned by New when the secret
	// store cannot be read.
	ErrProtectedStorageUnavailable = secretstore.ErrProtectedStorageUnavailable
)
