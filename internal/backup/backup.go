// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package backup runs the key export workflow: ask for a password, export
// the key file, stage it in a temporary file, hand it to a share sink, and
// remove the temporary file whatever happens.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aplane-algo/ethwallet/internal/fsutil"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// ErrCancelled is returned by a prompter or sink when the user backs out.
var ErrCancelled = errors.New("cancelled")

// DefaultFilePrefix names staged backup files.
const DefaultFilePrefix = "ethwallet"

// PasswordPrompter asks for the password the exported file is encrypted
// with.
type PasswordPrompter interface {
	PromptPassword(ctx context.Context, account wallet.EthereumAccount) (string, error)
}

// PasswordPrompterFunc adapts a function to PasswordPrompter.
type PasswordPrompterFunc func(ctx context.Context, account wallet.EthereumAccount) (string, error)

func (f PasswordPrompterFunc) PromptPassword(ctx context.Context, account wallet.EthereumAccount) (string, error) {
	return f(ctx, account)
}

// ShareSink takes the staged file somewhere. The file is removed as soon as
// Share returns, so the sink must finish with it first.
type ShareSink interface {
	Share(ctx context.Context, path string) error
}

// Exporter produces key file JSON for an account.
type Exporter interface {
	Export(ctx context.Context, account wallet.EthereumAccount, newPassword string) (string, error)
}

// Outcome is how a Run ended when it did not fail.
type Outcome int

const (
	Finished Outcome = iota + 1
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// FileName is the staged file name for addr.
func FileName(prefix string, addr wallet.Address) string {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	return fmt.Sprintf("%s_backup_%s.json", prefix, addr.Hex())
}

// Coordinator wires the workflow together.
type Coordinator struct {
	Prompter PasswordPrompter
	Exporter Exporter
	Sink     ShareSink

	// TempDir is where files are staged; os.TempDir() when empty.
	TempDir    string
	FilePrefix string
	Logger     *slog.Logger
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Run exports account and shares it. A cancelled prompt or share yields
// Cancelled with a nil error.
func (c *Coordinator) Run(ctx context.Context, account wallet.EthereumAccount) (Outcome, error) {
	password, err := c.Prompter.PromptPassword(ctx, account)
	if errors.Is(err, ErrCancelled) {
		return Cancelled, nil
	}
	if err != nil {
		return 0, fmt.Errorf("prompt password: %w", err)
	}

	keyJSON, err := c.Exporter.Export(ctx, account, password)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", account.Address.Hex(), err)
	}

	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, FileName(c.FilePrefix, account.Address))

	// Registered before the write so a panic in the sink still cleans up.
	defer func() {
		if err := fsutil.RemoveIfExists(path); err != nil {
			c.logger().Warn("staged backup not removed", "path", path, "error", err)
		}
	}()

	if err := fsutil.AtomicWriteFile(path, []byte(keyJSON)); err != nil {
		return 0, fmt.Errorf("stage backup: %w", err)
	}

	err = c.Sink.Share(ctx, path)
	if errors.Is(err, ErrCancelled) {
		return Cancelled, nil
	}
	if err != nil {
		return 0, fmt.Errorf("share backup: %w", err)
	}

	c.logger().Info("backup shared", "address", account.Address.Hex())
	return Finished, nil
}
