// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"fmt"

	wcrypto "github.com/aplane-algo/ethwallet/internal/crypto"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// MigrationPolicy decides what happens when one legacy account fails.
type MigrationPolicy int

const (
	// SkipAndContinue counts the failure and moves to the next account.
	SkipAndContinue MigrationPolicy = iota
)

// MigrationReport summarises one migration run.
type MigrationReport struct {
	Policy   MigrationPolicy
	Imported []wallet.EthereumAccount
	// Skipped accounts had no password, failed to decrypt or were already
	// present.
	Skipped []wallet.EthereumAccount
	// AlreadyMigrated is set when the flag was found set and nothing ran.
	AlreadyMigrated bool
}

// MigrateFromLegacyFiles imports every legacy key file whose password can be
// found. It runs once: the persisted flag is set at the end and later calls
// return an empty report.
func (k *Keystore) MigrateFromLegacyFiles(ctx context.Context) (MigrationReport, error) {
	report := MigrationReport{Policy: SkipAndContinue}

	migrated, err := k.prefs.Migrated()
	if err != nil {
		return report, fmt.Errorf("%w: read migration flag: %w", ErrStorageFailure, err)
	}
	if migrated {
		report.AlreadyMigrated = true
		return report, nil
	}

	if k.legacy != nil {
		for _, account := range k.legacy.Accounts() {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			if err := k.migrateOne(account); err != nil {
				k.logger.Debug("legacy account skipped", "address", account.Address.Hex(), "error", err)
				report.Skipped = append(report.Skipped, account)
				continue
			}
			report.Imported = append(report.Imported, account)
		}
	}

	if err := k.prefs.SetMigrated(); err != nil {
		return report, fmt.Errorf("%w: set migration flag: %w", ErrStorageFailure, err)
	}
	k.logger.Info("legacy migration finished",
		"imported", len(report.Imported), "skipped", len(report.Skipped))
	return report, nil
}

func (k *Keystore) migrateOne(account wallet.EthereumAccount) error {
	key, err := k.legacy.ExportPrivateKey(account)
	if err != nil {
		return err
	}
	defer wcrypto.ZeroBytes(key)

	_, err = k.importPrivateKey(key)
	return err
}
