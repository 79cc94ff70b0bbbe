// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package crypto holds the at-rest encryption used by the secret store: an
// Argon2id master key derived once at unlock, and AES-256-GCM envelopes for
// individual values sealed under it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters (OWASP recommended)
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2KeyLen  = 32        // AES-256

	// EnvelopeVersion is the only envelope format this package writes or reads.
	EnvelopeVersion = 1
)

var (
	// ErrEnvelopeVersion is returned when an envelope carries an unknown version.
	ErrEnvelopeVersion = errors.New("unsupported envelope version")

	// ErrOpenFailed means authentication failed: wrong key, wrong name or
	// tampered ciphertext.
	ErrOpenFailed = errors.New("failed to open envelope")
)

// Envelope is one sealed value as persisted in the secret store file.
type Envelope struct {
	Version    int    `json:"v"`
	Nonce      string `json:"nonce"`      // base64 AES-GCM nonce
	Ciphertext string `json:"ciphertext"` // base64 ciphertext || tag
}

// DeriveMasterKey derives the store master key from passphrase and salt.
// Caller is responsible for zeroing the returned key when done.
func DeriveMasterKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

func newGCM(masterKey []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under masterKey. The name is bound as additional
// data, so an envelope copied under a different name will not open.
func Seal(masterKey, plaintext []byte, name string) (Envelope, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return Envelope{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, []byte(name))

	return Envelope{
		Version:    EnvelopeVersion,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Open reverses Seal. The returned plaintext belongs to the caller, who
// should ZeroBytes it once consumed.
func Open(masterKey []byte, env Envelope, name string) ([]byte, error) {
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", ErrEnvelopeVersion, env.Version)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length", ErrOpenFailed)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
