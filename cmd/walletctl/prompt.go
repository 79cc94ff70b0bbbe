// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aplane-algo/ethwallet/internal/config"
	"github.com/aplane-algo/ethwallet/internal/util"
)

// stdinReader is shared so piped input is not lost between prompts.
var stdinReader *bufio.Reader

var errPasswordMismatch = errors.New("passwords do not match")

// readPassword prints label on stderr and reads one line without echo when
// stdin is a terminal.
func readPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd()) // #nosec G115 - file descriptors are small integers
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if stdinReader == nil {
		stdinReader = bufio.NewReader(os.Stdin)
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readNewPassword asks twice and rejects empty or mismatched input.
func readNewPassword(label string) (string, error) {
	first, err := readPassword(label)
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("password must not be empty")
	}
	second, err := readPassword("Confirm: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}

// storePassphrase comes from passphrase_command when configured, otherwise
// from the terminal.
func storePassphrase(ctx context.Context, cfg config.Config, confirm bool) ([]byte, error) {
	if len(cfg.PassphraseCommand) > 0 {
		return util.RunPassphraseCommand(ctx, cfg.PassphraseCommand)
	}

	var (
		pass string
		err  error
	)
	if confirm {
		pass, err = readNewPassword("New store passphrase: ")
	} else {
		pass, err = readPassword("Store passphrase: ")
	}
	if err != nil {
		return nil, err
	}
	return []byte(pass), nil
}
