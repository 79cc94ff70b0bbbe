// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	wcrypto "github.com/aplane-algo/ethwallet/internal/crypto"
)

const (
	passphraseCommandTimeout = 5 * time.Second
	maxPassphraseOutputBytes = 8 * 1024
)

// RunPassphraseCommand runs argv and returns what it printed as the secret
// store passphrase. The child gets an empty environment and no stdin, its
// stderr is discarded, and the whole process group is killed on timeout.
//
// Exactly one trailing newline is stripped. Output prefixed "base64:" or
// "hex:" is decoded. The caller should zero the result.
func RunPassphraseCommand(ctx context.Context, argv []string) ([]byte, error) {
	if err := ValidatePassphraseCommand(argv); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, passphraseCommandTimeout)
	defer cancel()

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // validated above
	cmd.Env = []string{}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stderr = io.Discard

	var stdout bytes.Buffer
	defer func() {
		wcrypto.ZeroBytes(stdout.Bytes())
		stdout.Reset()
	}()
	lw := &limitedWriter{w: &stdout, remaining: maxPassphraseOutputBytes}
	cmd.Stdout = lw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("passphrase_command: failed to start: %w", err)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	select {
	case err := <-waitDone:
		if err != nil {
			return nil, fmt.Errorf("passphrase_command: command failed: %w", err)
		}
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-waitDone
		return nil, fmt.Errorf("passphrase_command: %w", ctx.Err())
	}

	if lw.truncated {
		return nil, fmt.Errorf("passphrase_command: stdout exceeded %d bytes", maxPassphraseOutputBytes)
	}

	out := stdout.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
		if n := len(out); n > 0 && out[n-1] == '\r' {
			out = out[:n-1]
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("passphrase_command: command produced empty output")
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return nil, fmt.Errorf("passphrase_command: output contains NUL bytes")
	}

	return decodePassphrase(out)
}

func decodePassphrase(out []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(out, []byte("base64:")):
		enc := out[len("base64:"):]
		dec := make([]byte, base64.StdEncoding.DecodedLen(len(enc)))
		n, err := base64.StdEncoding.Decode(dec, enc)
		if err != nil {
			wcrypto.ZeroBytes(dec)
			return nil, fmt.Errorf("passphrase_command: invalid base64 output: %w", err)
		}
		return dec[:n], nil
	case bytes.HasPrefix(out, []byte("hex:")):
		enc := out[len("hex:"):]
		dec := make([]byte, hex.DecodedLen(len(enc)))
		n, err := hex.Decode(dec, enc)
		if err != nil {
			wcrypto.ZeroBytes(dec)
			return nil, fmt.Errorf("passphrase_command: invalid hex output: %w", err)
		}
		return dec[:n], nil
	}
	return bytes.Clone(out), nil
}

// ValidatePassphraseCommand requires argv[0] to be an absolute path to an
// executable that neither group nor others can write.
func ValidatePassphraseCommand(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("passphrase_command: must be non-empty")
	}
	path := argv[0]
	if !filepath.IsAbs(path) {
		return fmt.Errorf("passphrase_command: %q is not an absolute path", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("passphrase_command: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("passphrase_command: %s is a directory", path)
	}
	perm := info.Mode().Perm()
	if perm&0111 == 0 {
		return fmt.Errorf("passphrase_command: %s is not executable (mode %04o)", path, perm)
	}
	if perm&0022 != 0 {
		return fmt.Errorf("passphrase_command: %s is group or world writable (mode %04o)", path, perm)
	}
	return nil
}

// limitedWriter keeps at most remaining bytes and records truncation. It
// always reports a full write so the child never sees EPIPE.
type limitedWriter struct {
	w         io.Writer
	remaining int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n > lw.remaining {
		p = p[:lw.remaining]
		lw.truncated = true
	}
	if len(p) > 0 {
		written, err := lw.w.Write(p)
		lw.remaining -= written
		if err != nil {
			return written, err
		}
	}
	return n, nil
}
