// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// DebugEnv forces debug logging regardless of the configured level.
const DebugEnv = "WALLET_DEBUG"

// NewLogger builds the CLI logger. Output is plain text on w without
// timestamps; level is one of debug, info, warn, error.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if os.Getenv(DebugEnv) != "" {
		lvl = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(handler)
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
