// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aplane-algo/ethwallet/internal/fsutil"
)

// CopySink copies the staged file into Dir and drops a README next to it.
// Dir is created, or tightened, to owner-only permissions.
type CopySink struct {
	Dir string

	// Copied holds the destination of the last copy.
	Copied string
}

func (s *CopySink) Share(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read staged file: %w", err)
	}

	dest := filepath.Join(s.Dir, filepath.Base(path))
	if err := fsutil.AtomicWriteFile(dest, data); err != nil {
		return fmt.Errorf("copy to %s: %w", s.Dir, err)
	}
	if err := WriteReadme(s.Dir); err != nil {
		return err
	}
	s.Copied = dest
	return nil
}

// WriterSink streams the staged file to W.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Share(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(s.W, f); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// ShareFunc adapts a function to ShareSink.
type ShareFunc func(ctx context.Context, path string) error

func (f ShareFunc) Share(ctx context.Context, path string) error {
	return f(ctx, path)
}
