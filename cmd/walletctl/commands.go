// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/backup"
	wcrypto "github.com/aplane-algo/ethwallet/internal/crypto"
	"github.com/aplane-algo/ethwallet/internal/keystore"
	"github.com/aplane-algo/ethwallet/internal/signing"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// command is one subcommand that needs an opened wallet. The same table
// backs the CLI and the shell.
type command struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"list":            {"", 0, cmdList},
	"create":          {"", 0, cmdCreate},
	"import-keystore": {"<keyfile>", 1, cmdImportKeystore},
	"import-key":      {"", 0, cmdImportKey},
	"watch":           {"<address>", 1, cmdWatch},
	"export":          {"<address> <dest-dir>", 2, cmdExport},
	"delete":          {"<address>", 1, cmdDelete},
	"use":             {"<address|none>", 1, cmdUse},
	"current":         {"", 0, cmdCurrent},
	"sign-hash":       {"<address> <0xhash>", 2, cmdSignHash},
	"sign-personal":   {"<address> <message> [--hex]", 2, cmdSignPersonal},
	"sign-message":    {"<address> <message> [--hex]", 2, cmdSignMessage},
	"sign-typed":      {"<address> <typed-data.json>", 2, cmdSignTyped},
	"sign-tx":         {"<tx.json>", 1, cmdSignTx},
	"verify":          {"<address> <message> <0xsignature> [--hex]", 3, cmdVerify},
	"migrate":         {"", 0, cmdMigrate},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// await turns a callback-style facade call into a blocking one.
func await[T any](ctx context.Context, start func(done func(fn.Result[T]))) (T, error) {
	ch := make(chan fn.Result[T], 1)
	start(func(r fn.Result[T]) { ch <- r })

	select {
	case r := <-ch:
		return r.Unpack()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// findWallet returns the stored wallet for s.
func (a *app) findWallet(s string) (wallet.Wallet, error) {
	addr, err := wallet.ParseAddress(s)
	if err != nil {
		return wallet.Wallet{}, err
	}
	wallets, err := a.ks.Wallets()
	if err != nil {
		return wallet.Wallet{}, err
	}
	for _, w := range wallets {
		if w.Address() == addr {
			return w, nil
		}
	}
	return wallet.Wallet{}, fmt.Errorf("%w: %s", keystore.ErrAccountNotFound, addr.Hex())
}

func parseAccount(s string) (wallet.EthereumAccount, error) {
	addr, err := wallet.ParseAddress(s)
	if err != nil {
		return wallet.EthereumAccount{}, err
	}
	return wallet.EthereumAccount{Address: addr}, nil
}

// messageArgs strips a --hex flag from args, checks at least want
// arguments remain, and returns the message at args[1]. The message is
// UTF-8 text, even when it looks like hex, unless --hex was given.
func messageArgs(args []string, want int) ([]string, []byte, error) {
	rest := make([]string, 0, len(args))
	asHex := false
	for _, arg := range args {
		if arg == "--hex" {
			asHex = true
			continue
		}
		rest = append(rest, arg)
	}
	if len(rest) < want {
		return nil, nil, fmt.Errorf("expected %d arguments, got %d", want, len(rest))
	}

	if !asHex {
		return rest, []byte(rest[1]), nil
	}
	msg, err := hexutil.Decode(rest[1])
	if err != nil {
		return nil, nil, fmt.Errorf("message: %w", err)
	}
	return rest, msg, nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	wallets, err := a.ks.Wallets()
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		fmt.Fprintln(a.out, "No wallets")
		return nil
	}

	recent := a.ks.RecentlyUsedWallet()

	for _, w := range wallets {
		marker := " "
		recent.WhenSome(func(r wallet.Wallet) {
			if r.Address() == w.Address() {
				marker = "*"
			}
		})
		fmt.Fprintf(a.out, "%s %-5s %s\n", marker, w.Kind(), w.Address().Hex())
	}
	return nil
}

func cmdCreate(ctx context.Context, a *app, args []string) error {
	account, err := await(ctx, func(done func(fn.Result[wallet.EthereumAccount])) {
		a.ks.CreateAccountAsync(ctx, done)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s\n", account.Address.Hex())
	return nil
}

func (a *app) importWallet(ctx context.Context, it wallet.ImportType) error {
	w, err := await(ctx, func(done func(fn.Result[wallet.Wallet])) {
		a.ks.ImportWallet(ctx, it, done)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %s wallet %s\n", w.Kind(), w.Address().Hex())
	return nil
}

func cmdImportKeystore(ctx context.Context, a *app, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	password, err := a.prompt("Key file password: ")
	if err != nil {
		return err
	}
	return a.importWallet(ctx, wallet.ImportKeystore{JSON: data, Password: password})
}

func cmdImportKey(ctx context.Context, a *app, args []string) error {
	keyHex, err := a.prompt("Private key (hex): ")
	if err != nil {
		return err
	}
	key := common.FromHex(strings.TrimSpace(keyHex))
	defer wcrypto.ZeroBytes(key)
	return a.importWallet(ctx, wallet.ImportPrivateKey{Key: key})
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	addr, err := wallet.ParseAddress(args[0])
	if err != nil {
		return err
	}
	return a.importWallet(ctx, wallet.ImportWatch{Address: addr})
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	account, err := parseAccount(args[0])
	if err != nil {
		return err
	}

	sink := &backup.CopySink{Dir: args[1]}
	c := &backup.Coordinator{
		Prompter: backup.PasswordPrompterFunc(func(ctx context.Context, account wallet.EthereumAccount) (string, error) {
			fmt.Fprintf(a.out, "Choose a password for the backup of %s (empty to cancel)\n", account.Address.Hex())
			pw, err := a.prompt("Backup password: ")
			if err != nil {
				return "", err
			}
			if pw == "" {
				return "", backup.ErrCancelled
			}
			confirm, err := a.prompt("Confirm: ")
			if err != nil {
				return "", err
			}
			if confirm != pw {
				return "", errPasswordMismatch
			}
			return pw, nil
		}),
		Exporter:   a.ks,
		Sink:       sink,
		TempDir:    a.cfg.BackupTempDir,
		FilePrefix: a.cfg.BackupFilePrefix,
		Logger:     a.logger,
	}

	outcome, err := c.Run(ctx, account)
	if err != nil {
		return err
	}
	if outcome == backup.Cancelled {
		fmt.Fprintln(a.out, "Export cancelled")
		return nil
	}
	fmt.Fprintf(a.out, "Backup written to %s\n", sink.Copied)
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	w, err := a.findWallet(args[0])
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	a.ks.DeleteAsync(ctx, w, func(err error) { done <- err })
	select {
	case err = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", w)
	return nil
}

func cmdUse(ctx context.Context, a *app, args []string) error {
	if args[0] == "none" {
		return a.ks.SetRecentlyUsedWallet(fn.None[wallet.Wallet]())
	}
	w, err := a.findWallet(args[0])
	if err != nil {
		return err
	}
	if err := a.ks.SetRecentlyUsedWallet(fn.Some(w)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Using %s\n", w)
	return nil
}

func cmdCurrent(ctx context.Context, a *app, args []string) error {
	recent := a.ks.RecentlyUsedWallet()
	if recent.IsNone() {
		fmt.Fprintln(a.out, "No wallet selected")
		return nil
	}
	recent.WhenSome(func(w wallet.Wallet) {
		fmt.Fprintln(a.out, w)
	})
	return nil
}

func (a *app) printSignature(sig []byte) {
	fmt.Fprintln(a.out, hexutil.Encode(sig))
}

func cmdSignHash(ctx context.Context, a *app, args []string) error {
	account, err := parseAccount(args[0])
	if err != nil {
		return err
	}
	hash, err := hexutil.Decode(args[1])
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}
	sig, err := a.ks.SignHash(hash, account)
	if err != nil {
		return err
	}
	a.printSignature(sig)
	return nil
}

func cmdSignPersonal(ctx context.Context, a *app, args []string) error {
	args, msg, err := messageArgs(args, 2)
	if err != nil {
		return err
	}
	account, err := parseAccount(args[0])
	if err != nil {
		return err
	}
	sig, err := a.ks.SignPersonalMessage(msg, account)
	if err != nil {
		return err
	}
	a.printSignature(sig)
	return nil
}

func cmdSignMessage(ctx context.Context, a *app, args []string) error {
	args, msg, err := messageArgs(args, 2)
	if err != nil {
		return err
	}
	account, err := parseAccount(args[0])
	if err != nil {
		return err
	}
	sig, err := a.ks.SignMessage(msg, account)
	if err != nil {
		return err
	}
	a.printSignature(sig)
	return nil
}

func cmdSignTyped(ctx context.Context, a *app, args []string) error {
	account, err := parseAccount(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var parts []signing.TypedData
	if err := dec.Decode(&parts); err != nil {
		return fmt.Errorf("typed data: %w", err)
	}

	sig, err := a.ks.SignTypedMessage(parts, account)
	if err != nil {
		return err
	}
	a.printSignature(sig)
	return nil
}

func cmdSignTx(ctx context.Context, a *app, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	tx, err := parseTxFile(data)
	if err != nil {
		return err
	}

	raw, err := a.ks.SignTransaction(tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "raw:  %s\n", hexutil.Encode(raw))
	fmt.Fprintf(a.out, "hash: %s\n", signing.TxHash(raw).Hex())
	return nil
}

func cmdVerify(ctx context.Context, a *app, args []string) error {
	args, msg, err := messageArgs(args, 3)
	if err != nil {
		return err
	}
	addr, err := wallet.ParseAddress(args[0])
	if err != nil {
		return err
	}
	sig, err := hexutil.Decode(args[2])
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	signer, err := signing.RecoverAddress(signing.PersonalMessageHash(msg), sig)
	if err != nil {
		return err
	}
	if signer != addr {
		return fmt.Errorf("signature is from %s, not %s", signer.Hex(), addr.Hex())
	}
	fmt.Fprintf(a.out, "Valid signature by %s\n", addr.Hex())
	return nil
}

func cmdMigrate(ctx context.Context, a *app, args []string) error {
	report, err := a.ks.MigrateFromLegacyFiles(ctx)
	if err != nil {
		return err
	}
	if report.AlreadyMigrated {
		fmt.Fprintln(a.out, "Legacy key files were already migrated")
		return nil
	}
	for _, acc := range report.Imported {
		fmt.Fprintf(a.out, "  imported %s\n", acc.Address.Hex())
	}
	for _, acc := range report.Skipped {
		fmt.Fprintf(a.out, "  skipped  %s\n", acc.Address.Hex())
	}
	fmt.Fprintf(a.out, "Migrated %d, skipped %d\n", len(report.Imported), len(report.Skipped))
	return nil
}

func cmdVerifyBackup(out io.Writer, dir string, deep bool) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("backup not found: %s", dir)
	}

	password := ""
	if deep {
		fmt.Fprintln(out, "Deep verification decrypts every file")
		pw, err := readPassword("Backup password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = pw
	}

	report, err := backup.VerifyBackup(dir, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Found %d key file(s):\n\n", report.TotalFiles)
	for _, r := range report.Results {
		switch {
		case !r.Valid:
			fmt.Fprintf(out, "  %s - %s\n", r.FileName, r.Error)
		case deep:
			fmt.Fprintf(out, "  %s (%s, decrypts OK)\n", r.FileName, r.Address)
		default:
			fmt.Fprintf(out, "  %s (%s, valid format)\n", r.FileName, backup.FormatFileSize(r.Size))
		}
	}

	fmt.Fprintln(out)
	if report.FailedFiles == 0 {
		fmt.Fprintln(out, "All files passed validation")
		return nil
	}
	return fmt.Errorf("%d file(s) failed validation", report.FailedFiles)
}
