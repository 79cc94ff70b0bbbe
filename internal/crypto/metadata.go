// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aplane-algo/ethwallet/internal/fsutil"
)

const (
	// MetadataFile is the control file kept next to the secret store.
	MetadataFile = ".keystore"

	masterSaltLen  = 32
	checkPlaintext = "ETHWALLET_OK"
	checkName      = "check"
)

// ErrIncorrectPassphrase is returned when the check value does not open.
var ErrIncorrectPassphrase = errors.New("incorrect passphrase")

// StoreMetadata holds the store-wide salt and a check value sealed under the
// master key, which lets Unlock reject a wrong passphrase before touching
// any entry.
type StoreMetadata struct {
	Version int      `json:"version"`
	Salt    string   `json:"salt"`
	Check   Envelope `json:"check"`
	Created string   `json:"created"`
}

// NewMetadata builds metadata for a fresh random salt, returning it with the
// derived master key. Nothing is written.
func NewMetadata(passphrase []byte) (*StoreMetadata, []byte, error) {
	salt := make([]byte, masterSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate master salt: %w", err)
	}

	masterKey := DeriveMasterKey(passphrase, salt)

	check, err := Seal(masterKey, []byte(checkPlaintext), checkName)
	if err != nil {
		ZeroBytes(masterKey)
		return nil, nil, fmt.Errorf("failed to create check value: %w", err)
	}

	meta := &StoreMetadata{
		Version: 1,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Check:   check,
		Created: time.Now().UTC().Format(time.RFC3339),
	}
	return meta, masterKey, nil
}

// CreateMetadata writes new metadata into dir and returns the master key.
func CreateMetadata(dir string, passphrase []byte) (*StoreMetadata, []byte, error) {
	meta, masterKey, err := NewMetadata(passphrase)
	if err != nil {
		return nil, nil, err
	}
	if err := meta.Save(dir); err != nil {
		ZeroBytes(masterKey)
		return nil, nil, err
	}
	return meta, masterKey, nil
}

// Save writes the metadata file into dir atomically.
func (m *StoreMetadata) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store metadata: %w", err)
	}
	if err := fsutil.AtomicWriteFile(filepath.Join(dir, MetadataFile), data); err != nil {
		return fmt.Errorf("failed to write store metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads the metadata file from dir. It returns nil, nil when
// the store was never initialised.
func LoadMetadata(dir string) (*StoreMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store metadata: %w", err)
	}

	var meta StoreMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse store metadata: %w", err)
	}
	return &meta, nil
}

// MetadataExists reports whether dir holds an initialised store.
func MetadataExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, MetadataFile))
	return err == nil
}

// VerifyAndDeriveMasterKey derives the master key and checks it against the
// sealed check value.
func (m *StoreMetadata) VerifyAndDeriveMasterKey(passphrase []byte) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(m.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master salt: %w", err)
	}

	masterKey := DeriveMasterKey(passphrase, salt)

	plaintext, err := Open(masterKey, m.Check, checkName)
	if err != nil {
		ZeroBytes(masterKey)
		if errors.Is(err, ErrOpenFailed) {
			return nil, ErrIncorrectPassphrase
		}
		return nil, err
	}
	defer ZeroBytes(plaintext)

	if string(plaintext) != checkPlaintext {
		ZeroBytes(masterKey)
		return nil, fmt.Errorf("%w (check mismatch)", ErrIncorrectPassphrase)
	}
	return masterKey, nil
}
