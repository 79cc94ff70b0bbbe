// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package security hardens the walletctl process while private keys or the
// secret store master key are in memory.
package security

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
)

// DisableCoreDumps sets RLIMIT_CORE to zero so a crash cannot write key
// material to disk.
func DisableCoreDumps() error {
	rlimit := syscall.Rlimit{Cur: 0, Max: 0}
	if err := syscall.Setrlimit(syscall.RLIMIT_CORE, &rlimit); err != nil {
		return fmt.Errorf("failed to disable core dumps: %w", err)
	}
	return nil
}

// LockMemory keeps current and future pages out of swap. It usually needs
// CAP_IPC_LOCK.
func LockMemory() error {
	if err := syscall.Mlockall(syscall.MCL_CURRENT | syscall.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall failed (grant with: sudo setcap cap_ipc_lock+ep %s): %w", os.Args[0], err)
	}
	return nil
}

// Harden applies both protections. Failures are logged, not fatal: an
// unprivileged user can still use the wallet.
func Harden(logger *slog.Logger) {
	if err := DisableCoreDumps(); err != nil {
		logger.Warn("core dumps still enabled", "error", err)
	}
	if err := LockMemory(); err != nil {
		logger.Debug("memory not locked", "error", err)
	}
}
