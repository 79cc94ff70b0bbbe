// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package secretstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/crypto"
	"github.com/aplane-algo/ethwallet/internal/fsutil"
)

// SecretsFile is the entry table inside the store directory.
const SecretsFile = "secrets.json"

const secretsFileVersion = 1

type secretsFile struct {
	Version int                        `json:"version"`
	Entries map[string]crypto.Envelope `json:"entries"`
}

// FileStore persists sealed values in <dir>/secrets.json. The store is
// locked until Unlock derives the master key from the passphrase.
type FileStore struct {
	dir    string
	meta   *crypto.StoreMetadata
	logger *slog.Logger

	mu        sync.RWMutex
	masterKey *crypto.SecureBytes // nil while locked
	entries   map[string]crypto.Envelope
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used for reload and watch events.
func WithLogger(l *slog.Logger) Option {
	return func(s *FileStore) {
		s.logger = l
	}
}

// Init creates a new store in dir and returns it unlocked.
func Init(dir string, passphrase []byte, opts ...Option) (*FileStore, error) {
	if crypto.MetadataExists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, dir)
	}
	if err := fsutil.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	meta, masterKey, err := crypto.CreateMetadata(dir, passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(masterKey)

	s := newFileStore(dir, meta, opts)
	s.masterKey = crypto.NewSecureBytes(masterKey)
	if err := s.writeLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open loads the store in dir. The returned store is locked.
func Open(dir string, opts ...Option) (*FileStore, error) {
	meta, err := crypto.LoadMetadata(dir)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, dir)
	}

	s := newFileStore(dir, meta, opts)
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func newFileStore(dir string, meta *crypto.StoreMetadata, opts []Option) *FileStore {
	s := &FileStore{
		dir:     dir,
		meta:    meta,
		logger:  slog.Default(),
		entries: make(map[string]crypto.Envelope),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Unlock verifies the passphrase and keeps the master key in memory.
func (s *FileStore) Unlock(passphrase []byte) error {
	masterKey, err := s.meta.VerifyAndDeriveMasterKey(passphrase)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(masterKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.masterKey != nil {
		s.masterKey.Destroy()
	}
	s.masterKey = crypto.NewSecureBytes(masterKey)
	return nil
}

// Lock zeroes the master key. Entries stay on disk.
func (s *FileStore) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.masterKey != nil {
		s.masterKey.Destroy()
		s.masterKey = nil
	}
}

func (s *FileStore) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.masterKey != nil
}

func (s *FileStore) Get(key string) (fn.Option[[]byte], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.masterKey == nil {
		return fn.None[[]byte](), ErrLocked
	}

	env, ok := s.entries[key]
	if !ok {
		return fn.None[[]byte](), nil
	}

	var value []byte
	err := s.masterKey.WithBytes(func(mk []byte) error {
		var err error
		value, err = crypto.Open(mk, env, key)
		return err
	})
	if err != nil {
		return fn.None[[]byte](), fmt.Errorf("open %q: %w", key, err)
	}
	return fn.Some(value), nil
}

func (s *FileStore) Set(key string, value []byte, access AccessPolicy) error {
	if err := checkPolicy(access); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.masterKey == nil {
		return ErrLocked
	}

	// Pick up writes from other processes before rewriting the table.
	if err := s.reloadLocked(); err != nil {
		return err
	}

	var env crypto.Envelope
	err := s.masterKey.WithBytes(func(mk []byte) error {
		var err error
		env, err = crypto.Seal(mk, value, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("seal %q: %w", key, err)
	}

	prev, had := s.entries[key]
	s.entries[key] = env
	if err := s.writeLocked(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.masterKey == nil {
		return ErrLocked
	}

	if err := s.reloadLocked(); err != nil {
		return err
	}

	prev, had := s.entries[key]
	if !had {
		return nil
	}
	delete(s.entries, key)
	if err := s.writeLocked(); err != nil {
		s.entries[key] = prev
		return err
	}
	return nil
}

// Len returns the number of stored entries. Works while locked.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, SecretsFile)
}

func (s *FileStore) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *FileStore) reloadLocked() error {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		s.entries = make(map[string]crypto.Envelope)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", SecretsFile, err)
	}

	var f secretsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse %s: %w", SecretsFile, err)
	}
	if f.Version != secretsFileVersion {
		return fmt.Errorf("%s: unsupported version %d", SecretsFile, f.Version)
	}
	if f.Entries == nil {
		f.Entries = make(map[string]crypto.Envelope)
	}
	s.entries = f.Entries
	return nil
}

func (s *FileStore) writeLocked() error {
	data, err := json.MarshalIndent(secretsFile{
		Version: secretsFileVersion,
		Entries: s.entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", SecretsFile, err)
	}
	if err := fsutil.AtomicWriteFile(s.path(), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", SecretsFile, err)
	}
	return nil
}
