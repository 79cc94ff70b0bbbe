// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package legacy reads and writes password-encrypted key files in the Web3
// Secret Storage format (version 3, and version 1 for reading), and manages
// the directory of such files left behind by older wallet versions.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

var (
	// ErrMalformedKeyFile means the input is not a key file at all.
	ErrMalformedKeyFile = errors.New("malformed key file")

	// ErrDecrypt covers a wrong password, a MAC mismatch and any
	// unsupported cipher, KDF or version.
	ErrDecrypt = errors.New("could not decrypt key file")

	// ErrAccountNotFound means the key file or its password is missing.
	ErrAccountNotFound = errors.New("legacy account not found")
)

// ScryptParams selects the scrypt cost used when encrypting.
type ScryptParams struct {
	N int
	P int
}

var (
	// StandardScryptParams is the production cost (256 MB, ~1s).
	StandardScryptParams = ScryptParams{N: keystore.StandardScryptN, P: keystore.StandardScryptP}

	// LightScryptParams is for tests and memory constrained devices.
	LightScryptParams = ScryptParams{N: keystore.LightScryptN, P: keystore.LightScryptP}
)

// Decrypt returns the 32-byte private key held in a key file. It never
// returns a partial key.
func Decrypt(fileContents []byte, password string) ([]byte, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(fileContents, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKeyFile, err)
	}
	if _, ok := probe["crypto"]; !ok {
		// Version 1 files spell it with a capital C.
		if _, ok := probe["Crypto"]; !ok {
			return nil, fmt.Errorf("%w: no crypto section", ErrMalformedKeyFile)
		}
	}

	key, err := keystore.DecryptKey(fileContents, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return crypto.FromECDSA(key.PrivateKey), nil
}

// Encrypt wraps privateKey in a version 3 key file. Salt, IV and id are
// fresh on every call.
func Encrypt(privateKey []byte, password string, p ScryptParams) ([]byte, error) {
	priv, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate key id: %w", err)
	}

	key := &keystore.Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
		PrivateKey: priv,
	}
	return keystore.EncryptKey(key, password, p.N, p.P)
}

// PasswordKey is the secret store key under which the password of a legacy
// key file is kept: the lowercased checksummed address.
func PasswordKey(addr wallet.Address) string {
	return strings.ToLower(addr.Hex())
}

// LocatePassword finds the password stored for addr's legacy key file.
func LocatePassword(secrets secretstore.Store, addr wallet.Address) (fn.Option[string], error) {
	v, err := secrets.Get(PasswordKey(addr))
	if err != nil {
		return fn.None[string](), err
	}
	pw := fn.None[string]()
	v.WhenSome(func(b []byte) {
		pw = fn.Some(string(b))
	})
	return pw, nil
}
