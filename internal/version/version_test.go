// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLdflagsWin(t *testing.T) {
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })

	Version, GitCommit, BuildTime = "1.2.0", "abc1234", "2026-01-02T03:04:05Z"
	info := Get()
	require.Equal(t, "1.2.0", info.Version)
	require.Equal(t, "abc1234", info.Commit)
	require.Equal(t, "2026-01-02T03:04:05Z", info.BuildTime)

	s := String()
	require.True(t, strings.HasPrefix(s, "1.2.0 (commit: abc1234"), s)
	require.Contains(t, s, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestDefaultsNeverEmpty(t *testing.T) {
	info := Get()
	require.NotEmpty(t, info.Commit)
	require.NotEmpty(t, info.BuildTime)
}
