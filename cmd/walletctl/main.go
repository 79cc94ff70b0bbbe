// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aplane-algo/ethwallet/internal/config"
	"github.com/aplane-algo/ethwallet/internal/util"
	"github.com/aplane-algo/ethwallet/internal/version"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Printf("walletctl %s\n", version.String())
			os.Exit(0)
		}
	}

	flag.Usage = usage
	dataDir := flag.String("d", "", "Data directory (or set WALLET_DATA)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	resolvedDataDir := config.GetDataDir(*dataDir)
	cfg, err := config.Load(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := args[0]
	switch name {
	case "init":
		err = cmdInit(ctx, cfg)

	case "verify-backup":
		deep := len(args) > 2 && args[2] == "--deep"
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: walletctl verify-backup <dir> [--deep]")
			os.Exit(1)
		}
		err = cmdVerifyBackup(os.Stdout, args[1], deep)

	case "shell":
		err = runShell(ctx, cfg, logger)

	default:
		cmd, ok := commands[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
			flag.Usage()
			os.Exit(1)
		}
		if len(args)-1 < cmd.minArgs {
			fmt.Fprintf(os.Stderr, "Usage: walletctl %s %s\n", name, cmd.usage)
			os.Exit(1)
		}

		var a *app
		a, err = openApp(ctx, cfg, logger)
		if err == nil {
			err = cmd.run(ctx, a, args[1:])
			a.Close()
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "walletctl - Ethereum key custody and signing\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  walletctl [-d path] init\n")
	for _, name := range commandNames() {
		fmt.Fprintf(os.Stderr, "  walletctl [-d path] %s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "  walletctl [-d path] verify-backup <dir> [--deep]\n")
	fmt.Fprintf(os.Stderr, "  walletctl [-d path] shell\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	fmt.Fprintf(os.Stderr, "  -d path     Data directory (or set WALLET_DATA, default %s)\n", config.DefaultDataDir)
	fmt.Fprintf(os.Stderr, "  --version   Print version and exit\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  walletctl init\n")
	fmt.Fprintf(os.Stderr, "  walletctl create\n")
	fmt.Fprintf(os.Stderr, "  walletctl import-keystore UTC--2016-01-01T00-00-00Z--0x...\n")
	fmt.Fprintf(os.Stderr, "  walletctl sign-personal 0xAbC... \"hello\"\n")
	fmt.Fprintf(os.Stderr, "  walletctl sign-personal 0xAbC... 0x68656c6c6f --hex\n")
	fmt.Fprintf(os.Stderr, "  walletctl sign-tx tx.json\n")
	fmt.Fprintf(os.Stderr, "  walletctl export 0xAbC... /mnt/usb/backup\n")
	fmt.Fprintf(os.Stderr, "  walletctl verify-backup /mnt/usb/backup --deep\n")
}
