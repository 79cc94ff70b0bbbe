// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/aplane-algo/ethwallet/internal/backup"
	"github.com/aplane-algo/ethwallet/internal/config"
	"github.com/aplane-algo/ethwallet/internal/keystore"
	"github.com/aplane-algo/ethwallet/internal/legacy"
	"github.com/aplane-algo/ethwallet/internal/prefs"
	"github.com/aplane-algo/ethwallet/internal/secretstore"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

const (
	testKeyHex  = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

// newTestApp builds an app on in-memory stores. answers feed prompt in order.
func newTestApp(t *testing.T, answers ...string) (*app, *bytes.Buffer) {
	t.Helper()

	lists := prefs.NewMemoryStore()
	ks, err := keystore.New(keystore.Config{ExportScrypt: legacy.LightScryptParams}, secretstore.NewMemoryStore(), lists)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.BackupTempDir = t.TempDir()

	out := &bytes.Buffer{}
	prompt := func(string) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}

	a := &app{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		out:    out,
		prompt: prompt,
		lists:  lists,
		ks:     ks,
	}
	t.Cleanup(a.Close)
	return a, out
}

func run(t *testing.T, a *app, line string) {
	t.Helper()
	args := splitArgs(line)
	cmd, ok := commands[args[0]]
	require.True(t, ok, args[0])
	require.NoError(t, cmd.run(context.Background(), a, args[1:]))
}

func TestImportListUseCurrent(t *testing.T) {
	a, out := newTestApp(t, testKeyHex, "0x1234")
	ctx := context.Background()

	run(t, a, "import-key")
	require.Contains(t, out.String(), "Imported real wallet "+testAddress)

	run(t, a, "watch 0x000000000000000000000000000000000000dEaD")
	out.Reset()

	run(t, a, "current")
	require.Contains(t, out.String(), "No wallet selected")

	run(t, a, "use "+strings.ToLower(testAddress))
	out.Reset()
	run(t, a, "list")
	require.Contains(t, out.String(), "* real  "+testAddress)
	require.Contains(t, out.String(), "  watch 0x000000000000000000000000000000000000dEaD")

	out.Reset()
	run(t, a, "current")
	require.Contains(t, out.String(), testAddress)

	err := commands["import-key"].run(ctx, a, nil)
	require.ErrorIs(t, err, keystore.ErrFailedToImportPrivateKey)
}

func TestOpenMigratesLegacyFiles(t *testing.T) {
	secrets := secretstore.NewMemoryStore()
	files, err := legacy.NewFileKeystore(t.TempDir(), secrets, legacy.LightScryptParams, nil)
	require.NoError(t, err)
	key, err := hexutil.Decode(testKeyHex)
	require.NoError(t, err)
	_, err = files.Import(key, "legacy-pw")
	require.NoError(t, err)

	a, out := newTestApp(t)
	a.ks.Close()
	lists := prefs.NewMemoryStore()
	a.lists = lists
	a.ks, err = keystore.New(keystore.Config{ExportScrypt: legacy.LightScryptParams}, secrets, lists,
		keystore.WithLegacy(files))
	require.NoError(t, err)

	a.migrateLegacy(context.Background())
	run(t, a, "list")
	require.Contains(t, out.String(), "real  "+testAddress)

	out.Reset()
	run(t, a, "migrate")
	require.Contains(t, out.String(), "already migrated")
}

func TestImportDuplicate(t *testing.T) {
	a, _ := newTestApp(t, testKeyHex, testKeyHex)

	run(t, a, "import-key")
	err := commands["import-key"].run(context.Background(), a, nil)
	require.ErrorIs(t, err, keystore.ErrDuplicateAccount)
}

func TestSignPersonalAndVerify(t *testing.T) {
	a, out := newTestApp(t, testKeyHex)
	run(t, a, "import-key")
	out.Reset()

	run(t, a, `sign-personal `+testAddress+` "Some data"`)
	sig := strings.TrimSpace(out.String())
	require.Len(t, sig, 2+65*2)

	out.Reset()
	run(t, a, `verify `+testAddress+` "Some data" `+sig)
	require.Contains(t, out.String(), "Valid signature")

	err := commands["verify"].run(context.Background(), a, []string{testAddress, "other data", sig})
	require.Error(t, err)
}

func TestMessageTextUnlessHexFlag(t *testing.T) {
	a, out := newTestApp(t, testKeyHex)
	run(t, a, "import-key")
	acc := wallet.EthereumAccount{Address: mustAddress(t, testAddress)}

	text, err := a.ks.SignPersonalMessage([]byte("0x68656c6c6f"), acc)
	require.NoError(t, err)
	raw, err := a.ks.SignPersonalMessage([]byte("hello"), acc)
	require.NoError(t, err)

	out.Reset()
	run(t, a, "sign-personal "+testAddress+" 0x68656c6c6f")
	require.Equal(t, hexutil.Encode(text), strings.TrimSpace(out.String()))

	out.Reset()
	run(t, a, "sign-personal "+testAddress+" 0x68656c6c6f --hex")
	require.Equal(t, hexutil.Encode(raw), strings.TrimSpace(out.String()))

	out.Reset()
	run(t, a, "verify --hex "+testAddress+" 0x68656c6c6f "+hexutil.Encode(raw))
	require.Contains(t, out.String(), "Valid signature")

	err = commands["sign-message"].run(context.Background(), a, []string{testAddress, "zz", "--hex"})
	require.Error(t, err)
	err = commands["sign-personal"].run(context.Background(), a, []string{testAddress, "--hex"})
	require.Error(t, err)
}

func TestSignTx(t *testing.T) {
	a, out := newTestApp(t, testKeyHex)
	run(t, a, "import-key")
	out.Reset()

	path := filepath.Join(t.TempDir(), "tx.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"from": "`+testAddress+`",
		"to": "0x3535353535353535353535353535353535353535",
		"nonce": 9,
		"gasPrice": "20000000000",
		"gas": "0x5208",
		"value": "1000000000000000000",
		"chainId": 1
	}`), 0600))

	run(t, a, "sign-tx "+path)
	require.Contains(t, out.String(), "raw:  0xf8")
	require.Contains(t, out.String(), "hash: 0x")
}

func TestDeleteClearsCurrent(t *testing.T) {
	a, out := newTestApp(t, testKeyHex)
	run(t, a, "import-key")
	run(t, a, "use "+testAddress)
	run(t, a, "delete "+testAddress)

	out.Reset()
	run(t, a, "current")
	require.Contains(t, out.String(), "No wallet selected")

	err := commands["delete"].run(context.Background(), a, []string{testAddress})
	require.ErrorIs(t, err, keystore.ErrAccountNotFound)
}

func TestExportAndVerifyBackup(t *testing.T) {
	a, out := newTestApp(t, testKeyHex, "backup-pw", "backup-pw")
	run(t, a, "import-key")

	dest := t.TempDir()
	run(t, a, "export "+testAddress+" "+dest)
	require.Contains(t, out.String(), "Backup written to")

	names, err := backup.ScanBackupFiles(dest)
	require.NoError(t, err)
	require.Equal(t, []string{backup.FileName(a.cfg.BackupFilePrefix, mustAddress(t, testAddress))}, names)

	staged, err := os.ReadDir(a.cfg.BackupTempDir)
	require.NoError(t, err)
	require.Empty(t, staged)

	var report bytes.Buffer
	require.NoError(t, cmdVerifyBackup(&report, dest, false))
	require.Contains(t, report.String(), "All files passed validation")
}

func TestExportCancelled(t *testing.T) {
	a, out := newTestApp(t, testKeyHex, "")
	run(t, a, "import-key")

	run(t, a, "export "+testAddress+" "+t.TempDir())
	require.Contains(t, out.String(), "Export cancelled")
}

func TestExecLine(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.False(t, a.execLine(ctx, ""))
	require.False(t, a.execLine(ctx, "bogus"))
	require.Contains(t, out.String(), "Unknown command: bogus")

	out.Reset()
	require.False(t, a.execLine(ctx, "watch"))
	require.Contains(t, out.String(), "Usage: watch <address>")

	out.Reset()
	require.False(t, a.execLine(ctx, "help"))
	require.Contains(t, out.String(), "sign-personal")

	require.True(t, a.execLine(ctx, "exit"))
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"list", []string{"list"}},
		{"  sign-personal  0xabc   hello ", []string{"sign-personal", "0xabc", "hello"}},
		{`sign-personal 0xabc "hello world"`, []string{"sign-personal", "0xabc", "hello world"}},
		{`x ""`, []string{"x", ""}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, splitArgs(tt.line), tt.line)
	}
}
