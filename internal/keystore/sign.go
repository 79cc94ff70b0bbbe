// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/aplane-algo/ethwallet/internal/signing"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// signWith resolves the key for account and runs sign with it. Engine
// failures are reported as failKind; a missing key as ErrAccountNotFound.
func signWith[T any](k *Keystore, account wallet.EthereumAccount, failKind error, sign func(*ecdsa.PrivateKey) (T, error)) (T, error) {
	var zero T

	key, err := k.privateKey(account)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %w", failKind, err)
	}

	out, err := sign(key)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", failKind, err)
	}
	return out, nil
}

// SignHash signs a 32-byte digest.
func (k *Keystore) SignHash(hash []byte, account wallet.EthereumAccount) ([]byte, error) {
	return signWith(k, account, ErrFailedToSignMessage, func(key *ecdsa.PrivateKey) ([]byte, error) {
		return signing.SignHash(hash, key)
	})
}

// SignPersonalMessage signs msg with the Ethereum personal-message prefix.
func (k *Keystore) SignPersonalMessage(msg []byte, account wallet.EthereumAccount) ([]byte, error) {
	return signWith(k, account, ErrFailedToSignMessage, func(key *ecdsa.PrivateKey) ([]byte, error) {
		return signing.SignPersonalMessage(msg, key)
	})
}

// SignMessage signs keccak256(msg) with no prefix.
func (k *Keystore) SignMessage(msg []byte, account wallet.EthereumAccount) ([]byte, error) {
	return signWith(k, account, ErrFailedToSignMessage, func(key *ecdsa.PrivateKey) ([]byte, error) {
		return signing.SignMessage(msg, key)
	})
}

func (k *Keystore) SignTypedMessage(parts []signing.TypedData, account wallet.EthereumAccount) ([]byte, error) {
	return signWith(k, account, ErrFailedToSignMessage, func(key *ecdsa.PrivateKey) ([]byte, error) {
		return signing.SignTypedData(parts, key)
	})
}

func (k *Keystore) SignMessageBulk(msgs [][]byte, account wallet.EthereumAccount) ([][]byte, error) {
	return signWith(k, account, ErrFailedToSignMessage, func(key *ecdsa.PrivateKey) ([][]byte, error) {
		return signing.SignBulk(msgs, key)
	})
}

// SignTransaction signs tx with the key of tx.Account and returns the raw
// RLP bytes ready for broadcast.
func (k *Keystore) SignTransaction(tx signing.UnsignedTransaction) ([]byte, error) {
	return signWith(k, tx.Account, ErrFailedToSignTransaction, func(key *ecdsa.PrivateKey) ([]byte, error) {
		return signing.SignTransaction(tx, key)
	})
}
