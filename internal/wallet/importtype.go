// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wallet

// ImportType is the closed set of things that can be imported: a legacy
// keystore file, a raw private key, or a watch-only address.
type ImportType interface {
	isImportType()
}

// ImportKeystore carries encrypted key-file JSON and its password.
type ImportKeystore struct {
	JSON     []byte
	Password string
}

// ImportPrivateKey carries a raw 32-byte secp256k1 private key.
type ImportPrivateKey struct {
	Key []byte
}

// ImportWatch adds an address without a key.
type ImportWatch struct {
	Address Address
}

func (ImportKeystore) isImportType()   {}
func (ImportPrivateKey) isImportType() {}
func (ImportWatch) isImportType()      {}
