// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package legacy

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// FileKeystore is the directory of key files written by older wallet
// versions. Each file's password lives in the secret store.
type FileKeystore struct {
	ks      *keystore.KeyStore
	secrets secretstore.Store
	logger  *slog.Logger
}

// NewFileKeystore opens the key file directory dir. It refuses to start on
// an unavailable secret store because no file could be opened.
func NewFileKeystore(dir string, secrets secretstore.Store, p ScryptParams, logger *slog.Logger) (*FileKeystore, error) {
	if !secrets.Available() {
		return nil, secretstore.ErrProtectedStorageUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileKeystore{
		ks:      keystore.NewKeyStore(dir, p.N, p.P),
		secrets: secrets,
		logger:  logger,
	}, nil
}

// Available mirrors the secret store holding the passwords.
func (f *FileKeystore) Available() bool {
	return f.secrets.Available()
}

// Accounts lists the addresses that have a key file.
func (f *FileKeystore) Accounts() []wallet.EthereumAccount {
	accs := f.ks.Accounts()
	out := make([]wallet.EthereumAccount, 0, len(accs))
	for _, a := range accs {
		out = append(out, wallet.EthereumAccount{Address: a.Address})
	}
	return out
}

func (f *FileKeystore) find(addr wallet.Address) (accounts.Account, error) {
	acc, err := f.ks.Find(accounts.Account{Address: addr})
	if err != nil {
		return accounts.Account{}, fmt.Errorf("%w: %s: %v", ErrAccountNotFound, addr.Hex(), err)
	}
	return acc, nil
}

func (f *FileKeystore) password(addr wallet.Address) (string, error) {
	pw, err := LocatePassword(f.secrets, addr)
	if err != nil {
		return "", err
	}
	return pw.UnwrapOrErr(fmt.Errorf("%w: no password for %s", ErrAccountNotFound, addr.Hex()))
}

// ExportPrivateKey decrypts the key file of account with its stored
// password.
func (f *FileKeystore) ExportPrivateKey(account wallet.EthereumAccount) ([]byte, error) {
	pw, err := f.password(account.Address)
	if err != nil {
		return nil, err
	}
	acc, err := f.find(account.Address)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(acc.URL.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrAccountNotFound, acc.URL.Path, err)
	}
	return Decrypt(data, pw)
}

// Delete removes the key file of a real wallet. Watch wallets have no file,
// so deleting one succeeds without doing anything.
func (f *FileKeystore) Delete(w wallet.Wallet) error {
	return wallet.Fold(w,
		func(account wallet.EthereumAccount) error {
			pw, err := f.password(account.Address)
			if err != nil {
				return err
			}
			acc, err := f.find(account.Address)
			if err != nil {
				return err
			}
			if err := f.ks.Delete(acc, pw); err != nil {
				if errors.Is(err, keystore.ErrDecrypt) {
					return fmt.Errorf("%w: %v", ErrDecrypt, err)
				}
				return err
			}
			if err := f.secrets.Delete(PasswordKey(account.Address)); err != nil {
				f.logger.Warn("legacy password not removed", "address", account.Address.Hex(), "error", err)
			}
			return nil
		},
		func(wallet.Address) error { return nil },
	)
}

// Import writes privateKey as a key file encrypted with password and stores
// the password, the way older versions laid out their data.
func (f *FileKeystore) Import(privateKey []byte, password string) (wallet.EthereumAccount, error) {
	priv, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return wallet.EthereumAccount{}, fmt.Errorf("invalid private key: %w", err)
	}

	acc, err := f.ks.ImportECDSA(priv, password)
	if err != nil {
		return wallet.EthereumAccount{}, err
	}

	err = f.secrets.Set(PasswordKey(acc.Address), []byte(password), secretstore.WhenUnlockedThisDeviceOnly)
	if err != nil {
		_ = f.ks.Delete(acc, password)
		return wallet.EthereumAccount{}, fmt.Errorf("store legacy password: %w", err)
	}

	f.logger.Debug("legacy key file written", "address", acc.Address.Hex())
	return wallet.EthereumAccount{Address: acc.Address}, nil
}
