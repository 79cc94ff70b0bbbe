// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package signing produces secp256k1 signatures over hashes, messages, legacy
// typed data and legacy transactions. Every function is pure: it takes the
// payload and a private key and touches no storage.
//
// Signatures are 65 bytes, r || s || v, with v in {27, 28}.
package signing

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of every signature returned here.
const SignatureLength = crypto.SignatureLength

var (
	// ErrInvalidHash rejects digests that are not 32 bytes.
	ErrInvalidHash = errors.New("hash must be 32 bytes")

	// ErrNoKey is returned when a nil private key is passed.
	ErrNoKey = errors.New("no private key")

	// ErrInvalidSignature rejects malformed signatures on recovery.
	ErrInvalidSignature = errors.New("invalid signature")
)

// SignHash signs a 32-byte digest with deterministic (RFC 6979) ECDSA.
func SignHash(hash []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	if len(hash) != common.HashLength {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidHash, len(hash))
	}
	if key == nil {
		return nil, ErrNoKey
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// PersonalMessageHash is keccak256("\x19Ethereum Signed Message:\n" + len + msg).
func PersonalMessageHash(msg []byte) []byte {
	return accounts.TextHash(msg)
}

// SignPersonalMessage signs msg with the personal-message prefix.
func SignPersonalMessage(msg []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	return SignHash(PersonalMessageHash(msg), key)
}

// SignMessage signs keccak256(msg) without any prefix.
func SignMessage(msg []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	return SignHash(crypto.Keccak256(msg), key)
}

// SignBulk signs each message as SignMessage would. The result has the same
// length and order as msgs; any failure fails the whole batch.
func SignBulk(msgs [][]byte, key *ecdsa.PrivateKey) ([][]byte, error) {
	out := make([][]byte, 0, len(msgs))
	for i, msg := range msgs {
		sig, err := SignMessage(msg, key)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, sig)
	}
	return out, nil
}

// RecoverAddress returns the address that produced sig over hash. Both the
// 27/28 and 0/1 forms of v are accepted.
func RecoverAddress(hash, sig []byte) (common.Address, error) {
	if len(hash) != common.HashLength {
		return common.Address{}, fmt.Errorf("%w: got %d", ErrInvalidHash, len(hash))
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	switch v := normalized[crypto.RecoveryIDOffset]; v {
	case 0, 1:
	case 27, 28:
		normalized[crypto.RecoveryIDOffset] -= 27
	default:
		return common.Address{}, fmt.Errorf("%w: v=%d", ErrInvalidSignature, v)
	}

	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
