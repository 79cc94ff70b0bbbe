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
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/aplane-algo/ethwallet/internal/config"
	"github.com/aplane-algo/ethwallet/internal/version"
)

// runShell keeps one unlocked wallet open and reads commands until exit.
// Another walletctl writing the same store is picked up by the watcher.
func runShell(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := a.store.Watch(watchCtx, func(err error) {
		if err == nil {
			logger.Debug("secret store changed on disk")
		}
	}); err != nil {
		logger.Warn("secret store watcher unavailable", "error", err)
	}

	homeDir, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[32mwallet>\033[0m ",
		HistoryFile:       filepath.Join(homeDir, ".walletctl_history"),
		HistoryLimit:      1000,
		AutoComplete:      a.shellCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	// Secrets are read through readline so the terminal stays consistent.
	a.prompt = func(label string) (string, error) {
		b, err := rl.ReadPassword(label)
		return string(b), err
	}

	fmt.Printf("walletctl %s\n", version.Get().Version)
	fmt.Println("Type 'help' for commands, 'exit' to quit")
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					fmt.Println("Use 'exit' to quit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if done := a.execLine(ctx, line); done {
			return nil
		}
	}
}

// execLine runs one shell line and reports whether the shell should exit.
func (a *app) execLine(ctx context.Context, line string) bool {
	args := splitArgs(line)
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "help":
		for _, name := range commandNames() {
			fmt.Fprintf(a.out, "  %-16s %s\n", name, commands[name].usage)
		}
		return false
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.out, "Unknown command: %s\n", args[0])
		return false
	}
	if len(args)-1 < cmd.minArgs {
		fmt.Fprintf(a.out, "Usage: %s %s\n", args[0], cmd.usage)
		return false
	}
	if err := cmd.run(ctx, a, args[1:]); err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
	return false
}

// shellCompleter completes command names and, for commands taking an
// address first, the addresses of stored wallets.
func (a *app) shellCompleter() *readline.PrefixCompleter {
	addresses := func(string) []string {
		wallets, err := a.ks.Wallets()
		if err != nil {
			return nil
		}
		out := make([]string, 0, len(wallets))
		for _, w := range wallets {
			out = append(out, w.Address().Hex())
		}
		return out
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
	}
	for _, name := range commandNames() {
		if strings.HasPrefix(commands[name].usage, "<address") {
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(addresses)))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// splitArgs splits on whitespace, keeping double-quoted runs together.
func splitArgs(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}
