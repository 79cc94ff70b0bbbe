// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package prefs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"

	"github.com/aplane-algo/ethwallet/internal/fsutil"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

var (
	ownedBucket = []byte("ethereumAddressesWithPrivateKeys")
	watchBucket = []byte("watchAddresses")
	metaBucket  = []byte("meta")

	migratedKey = []byte("migrated")
)

// BoltStore keeps the lists in a bbolt database. Each list is a bucket whose
// keys are sequence numbers, so iteration order is insertion order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := fsutil.MkdirAll(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}

	db, err := bolt.Open(path, fsutil.PrivateFilePerm, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open prefs db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{ownedBucket, watchBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init prefs buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) OwnedAddresses() ([]wallet.Address, error) {
	return s.list(ownedBucket)
}

func (s *BoltStore) AddOwned(addr wallet.Address) error {
	return s.add(ownedBucket, addr)
}

func (s *BoltStore) RemoveOwned(addr wallet.Address) error {
	return s.remove(ownedBucket, addr)
}

func (s *BoltStore) WatchAddresses() ([]wallet.Address, error) {
	return s.list(watchBucket)
}

func (s *BoltStore) AddWatch(addr wallet.Address) error {
	return s.add(watchBucket, addr)
}

func (s *BoltStore) RemoveWatch(addr wallet.Address) error {
	return s.remove(watchBucket, addr)
}

func (s *BoltStore) Migrated() (bool, error) {
	var migrated bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(migratedKey)
		migrated = len(v) == 1 && v[0] == 1
		return nil
	})
	return migrated, err
}

func (s *BoltStore) SetMigrated() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(migratedKey, []byte{1})
	})
}

func (s *BoltStore) list(bucket []byte) ([]wallet.Address, error) {
	var out []wallet.Address
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			if len(v) != len(wallet.Address{}) {
				return fmt.Errorf("corrupt entry in %s: %d bytes", bucket, len(v))
			}
			var addr wallet.Address
			copy(addr[:], v)
			out = append(out, addr)
			return nil
		})
	})
	return out, err
}

var errFound = errors.New("found")

func (s *BoltStore) add(bucket []byte, addr wallet.Address) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)

		err := b.ForEach(func(_, v []byte) error {
			if common.BytesToAddress(v) == addr {
				return errFound
			}
			return nil
		})
		if errors.Is(err, errFound) {
			return nil
		}
		if err != nil {
			return err
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return b.Put(key[:], addr.Bytes())
	})
}

func (s *BoltStore) remove(bucket []byte, addr wallet.Address) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)

		var doomed [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if common.BytesToAddress(v) == addr {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
