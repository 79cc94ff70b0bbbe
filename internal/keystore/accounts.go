// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	wcrypto "github.com/aplane-algo/ethwallet/internal/crypto"
	"github.com/aplane-algo/ethwallet/internal/legacy"
	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// CreateAccount generates a fresh key and stores it as a new owned wallet.
func (k *Keystore) CreateAccount() (wallet.EthereumAccount, error) {
	key, err := k.generateKey()
	if err != nil {
		return wallet.EthereumAccount{}, fmt.Errorf("%w: %v", ErrFailedToImportPrivateKey, err)
	}
	defer wcrypto.ZeroBytes(key)

	k.mu.Lock()
	defer k.mu.Unlock()

	w, err := k.importKeyLocked(key)
	if err != nil {
		return wallet.EthereumAccount{}, err
	}
	acc := wallet.EthereumAccount{Address: w.Address()}
	k.logger.Info("account created", "address", acc.Address.Hex())
	return acc, nil
}

func (k *Keystore) generateKey() ([]byte, error) {
	buf := make([]byte, 32)
	for i := 0; i < 16; i++ {
		if _, err := io.ReadFull(k.random, buf); err != nil {
			return nil, err
		}
		// Retry on the negligible chance of zero or a value >= N.
		if _, err := crypto.ToECDSA(buf); err == nil {
			return buf, nil
		}
	}
	return nil, errors.New("entropy source produced no valid key")
}

// Import adds a wallet from a key file, a raw key or a watch address.
func (k *Keystore) Import(ctx context.Context, it wallet.ImportType) (wallet.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return wallet.Wallet{}, err
	}

	switch t := it.(type) {
	case wallet.ImportKeystore:
		key, err := legacy.Decrypt(t.JSON, t.Password)
		switch {
		case errors.Is(err, legacy.ErrMalformedKeyFile):
			return wallet.Wallet{}, fmt.Errorf("%w: %w", ErrFailedToImportPrivateKey, err)
		case err != nil:
			return wallet.Wallet{}, fmt.Errorf("%w: %w", ErrFailedToDecryptKey, err)
		}
		defer wcrypto.ZeroBytes(key)
		return k.importPrivateKey(key)

	case wallet.ImportPrivateKey:
		return k.importPrivateKey(t.Key)

	case wallet.ImportWatch:
		return k.importWatch(t.Address)

	default:
		return wallet.Wallet{}, fmt.Errorf("%w: unknown import type %T", ErrFailedToImportPrivateKey, it)
	}
}

func (k *Keystore) importPrivateKey(key []byte) (wallet.Wallet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	w, err := k.importKeyLocked(key)
	if err != nil {
		return wallet.Wallet{}, err
	}
	k.logger.Info("private key imported", "address", w.Address().Hex())
	return w, nil
}

// importKeyLocked stores key and records its address as owned. k.mu must be
// held.
func (k *Keystore) importKeyLocked(key []byte) (wallet.Wallet, error) {
	priv, err := crypto.ToECDSA(key)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("%w: %v", ErrFailedToImportPrivateKey, err)
	}
	addr := crypto.PubkeyToAddress(priv.PublicKey)

	existing, err := k.lookupLocked(addr)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("%w: %w", ErrFailedToImportPrivateKey, err)
	}
	if existing.IsSome() {
		return wallet.Wallet{}, fmt.Errorf("%w: %s", ErrDuplicateAccount, addr.Hex())
	}

	keyHex := []byte(hex.EncodeToString(key))
	defer wcrypto.ZeroBytes(keyHex)

	err = k.secrets.Set(privateKeyName(addr), keyHex, secretstore.WhenUnlockedThisDeviceOnly)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("%w: %w", ErrFailedToImportPrivateKey, err)
	}
	if err := k.prefs.AddOwned(addr); err != nil {
		_ = k.secrets.Delete(privateKeyName(addr))
		return wallet.Wallet{}, fmt.Errorf("%w: %w", ErrFailedToImportPrivateKey, err)
	}
	return wallet.Real(wallet.EthereumAccount{Address: addr}), nil
}

func (k *Keystore) importWatch(addr wallet.Address) (wallet.Wallet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	existing, err := k.lookupLocked(addr)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("%w: %w", ErrFailedToImportPrivateKey, err)
	}
	if existing.IsSome() {
		return wallet.Wallet{}, fmt.Errorf("%w: %s", ErrDuplicateAccount, addr.Hex())
	}
	if err := k.prefs.AddWatch(addr); err != nil {
		return wallet.Wallet{}, fmt.Errorf("%w: %w", ErrFailedToImportPrivateKey, err)
	}
	k.logger.Info("watch address added", "address", addr.Hex())
	return wallet.Watch(addr), nil
}

// Export re-encrypts the stored key of account under newPassword and
// returns the key file JSON.
func (k *Keystore) Export(ctx context.Context, account wallet.EthereumAccount, newPassword string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := k.privateKey(account)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", fmt.Errorf("%w: %w", ErrFailedToDecryptKey, err)
		}
		return "", fmt.Errorf("%w: %w", ErrFailedToExportPrivateKey, err)
	}
	raw := crypto.FromECDSA(key)
	defer wcrypto.ZeroBytes(raw)

	data, err := legacy.Encrypt(raw, newPassword, k.cfg.ExportScrypt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToExportPrivateKey, err)
	}
	k.logger.Info("account exported", "address", account.Address.Hex())
	return string(data), nil
}

// privateKey loads the stored key for account.
func (k *Keystore) privateKey(account wallet.EthereumAccount) (*ecdsa.PrivateKey, error) {
	k.mu.Lock()
	v, err := k.secrets.Get(privateKeyName(account.Address))
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}

	keyHex, err := v.UnwrapOrErr(fmt.Errorf("%w: %s", ErrAccountNotFound, account.Address.Hex()))
	if err != nil {
		return nil, err
	}
	defer wcrypto.ZeroBytes(keyHex)

	priv, err := crypto.HexToECDSA(strings.TrimSpace(string(keyHex)))
	if err != nil {
		return nil, fmt.Errorf("stored key for %s is corrupt: %w", account.Address.Hex(), err)
	}
	return priv, nil
}

// Delete removes a wallet. Deleting an unknown wallet succeeds. If the
// wallet was the recently used one, that pointer is cleared.
func (k *Keystore) Delete(w wallet.Wallet) error {
	if !w.Valid() {
		return fmt.Errorf("%w: invalid wallet", ErrFailedToDeleteAccount)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// The pointer only follows the wallet that was actually stored, so
	// deleting the other kind of an address leaves it alone.
	existing, err := k.lookupLocked(w.Address())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDeleteAccount, err)
	}
	stored := existing.UnwrapOr(wallet.Wallet{}) == w

	err = wallet.Fold(w,
		func(account wallet.EthereumAccount) error {
			if err := k.secrets.Delete(privateKeyName(account.Address)); err != nil {
				return err
			}
			if err := k.prefs.RemoveOwned(account.Address); err != nil {
				return err
			}
			if k.legacy != nil {
				if err := k.legacy.Delete(w); err != nil && !errors.Is(err, legacy.ErrAccountNotFound) {
					k.logger.Warn("legacy key file not removed", "address", account.Address.Hex(), "error", err)
				}
			}
			return nil
		},
		func(addr wallet.Address) error {
			return k.prefs.RemoveWatch(addr)
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDeleteAccount, err)
	}

	if stored {
		if err := k.recent.clearIf(k.secrets, w.Address()); err != nil {
			return fmt.Errorf("%w: clear recently used wallet: %w", ErrFailedToDeleteAccount, err)
		}
	}
	k.logger.Info("wallet deleted", "wallet", w.String())
	return nil
}
