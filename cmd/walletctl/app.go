// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aplane-algo/ethwallet/internal/config"
	wcrypto "github.com/aplane-algo/ethwallet/internal/crypto"
	"github.com/aplane-algo/ethwallet/internal/keystore"
	"github.com/aplane-algo/ethwallet/internal/legacy"
	"github.com/aplane-algo/ethwallet/internal/prefs"
	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/security"
)

// app is one opened wallet: an unlocked secret store, the address lists and
// the facade over them.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer

	// prompt reads a secret without echo.
	prompt func(label string) (string, error)

	store *secretstore.FileStore
	lists prefs.Store
	ks    *keystore.Keystore
}

func cmdInit(ctx context.Context, cfg config.Config) error {
	pass, err := storePassphrase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer wcrypto.ZeroBytes(pass)

	store, err := secretstore.Init(cfg.SecretStoreDir, pass)
	if err != nil {
		return err
	}
	store.Lock()

	fmt.Printf("Initialized secret store in %s\n", cfg.SecretStoreDir)
	return nil
}

func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	security.Harden(logger)

	store, err := secretstore.Open(cfg.SecretStoreDir, secretstore.WithLogger(logger))
	if errors.Is(err, secretstore.ErrNotInitialized) {
		return nil, fmt.Errorf("%w (run 'walletctl init' first)", err)
	}
	if err != nil {
		return nil, err
	}

	pass, err := storePassphrase(ctx, cfg, false)
	if err != nil {
		return nil, err
	}
	err = store.Unlock(pass)
	wcrypto.ZeroBytes(pass)
	if err != nil {
		return nil, err
	}

	a, err := newApp(cfg, logger, store)
	if err != nil {
		store.Lock()
		return nil, err
	}
	a.migrateLegacy(ctx)
	return a, nil
}

// migrateLegacy imports legacy key files the first time a data dir is
// opened. Later opens find the flag set and do nothing. A failure leaves the
// flag unset so the next open tries again.
func (a *app) migrateLegacy(ctx context.Context) {
	report, err := a.ks.MigrateFromLegacyFiles(ctx)
	if err != nil {
		a.logger.Warn("legacy migration failed", "error", err)
		return
	}
	if len(report.Skipped) > 0 {
		a.logger.Warn("legacy key files without a stored password were skipped", "count", len(report.Skipped))
	}
}

// newApp wires the facade over an unlocked secret store.
func newApp(cfg config.Config, logger *slog.Logger, store *secretstore.FileStore) (*app, error) {
	lists, err := prefs.OpenBolt(cfg.PrefsDB)
	if err != nil {
		return nil, err
	}

	secrets := secretstore.Prefixed(store, cfg.KeyPrefix)
	files, err := legacy.NewFileKeystore(cfg.LegacyKeystoreDir, secrets, cfg.KeystoreConfig().ExportScrypt, logger)
	if err != nil {
		_ = lists.Close()
		return nil, err
	}

	ks, err := keystore.New(cfg.KeystoreConfig(), secrets, lists,
		keystore.WithLegacy(files),
		keystore.WithLogger(logger),
	)
	if err != nil {
		_ = lists.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
		prompt: readPassword,
		store:  store,
		lists:  lists,
		ks:     ks,
	}, nil
}

// Close stops the facade and locks the store.
func (a *app) Close() {
	a.ks.Close()
	if err := a.lists.Close(); err != nil {
		a.logger.Warn("closing address lists", "error", err)
	}
	if a.store != nil {
		a.store.Lock()
	}
}
