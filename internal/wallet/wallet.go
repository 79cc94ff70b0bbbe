// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package wallet defines the wallet data model: addresses, owned and
// watch-only wallets, and the ways a wallet can be imported.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for text that is not a 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a 20-byte Ethereum account identifier. Its canonical text form
// is the EIP-55 checksummed hex returned by Hex.
type Address = common.Address

// ParseAddress accepts a hex address in any letter case, with or without the
// 0x prefix.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// EthereumAccount is an account the wallet holds a private key for.
type EthereumAccount struct {
	Address Address
}

func (a EthereumAccount) String() string {
	return a.Address.Hex()
}

// Kind distinguishes the two wallet variants.
type Kind int

const (
	KindReal Kind = iota + 1
	KindWatch
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindWatch:
		return "watch"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Wallet is either a Real wallet backed by a stored private key or a
// watch-only address. The zero value is not a valid wallet; build one with
// Real or Watch.
type Wallet struct {
	kind    Kind
	address Address
}

// Real returns the owned-wallet variant for account.
func Real(account EthereumAccount) Wallet {
	return Wallet{kind: KindReal, address: account.Address}
}

// Watch returns the watch-only variant for addr.
func Watch(addr Address) Wallet {
	return Wallet{kind: KindWatch, address: addr}
}

func (w Wallet) Kind() Kind {
	return w.kind
}

// Address identifies the wallet regardless of kind.
func (w Wallet) Address() Address {
	return w.address
}

// Valid reports whether w was built with Real or Watch.
func (w Wallet) Valid() bool {
	return w.kind == KindReal || w.kind == KindWatch
}

func (w Wallet) String() string {
	return fmt.Sprintf("%s(%s)", w.kind, w.address.Hex())
}

// Fold eliminates a wallet exhaustively. Every consumer that branches on the
// kind goes through here so a new variant cannot be silently ignored.
func Fold[T any](w Wallet, real func(EthereumAccount) T, watch func(Address) T) T {
	switch w.kind {
	case KindReal:
		return real(EthereumAccount{Address: w.address})
	case KindWatch:
		return watch(w.address)
	default:
		panic(fmt.Sprintf("wallet: fold over invalid wallet %v", w))
	}
}
