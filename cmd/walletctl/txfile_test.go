// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aplane-algo/ethwallet/internal/wallet"
)

func mustAddress(t *testing.T, s string) wallet.Address {
	t.Helper()
	addr, err := wallet.ParseAddress(s)
	require.NoError(t, err)
	return addr
}

func TestParseTxFile(t *testing.T) {
	tx, err := parseTxFile([]byte(`{
		"from": "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		"to": "0x3535353535353535353535353535353535353535",
		"nonce": "0x9",
		"gasPrice": 20000000000,
		"gas": "21000",
		"value": "0xde0b6b3a7640000",
		"data": "0x0102",
		"chainId": "1"
	}`))
	require.NoError(t, err)

	require.Equal(t, uint64(9), tx.Nonce)
	require.Equal(t, big.NewInt(20000000000), tx.GasPrice)
	require.Equal(t, uint64(21000), tx.GasLimit)
	require.Equal(t, "1000000000000000000", tx.Value.String())
	require.Equal(t, []byte{1, 2}, tx.Data)
	require.Equal(t, uint64(1), tx.ChainID)
	require.Equal(t, mustAddress(t, "0x3535353535353535353535353535353535353535"), tx.To.UnwrapOr(wallet.Address{}))
	require.Equal(t, mustAddress(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), tx.Account.Address)
}

func TestParseTxFileContractCreation(t *testing.T) {
	tx, err := parseTxFile([]byte(`{"from": "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", "data": "0x6000"}`))
	require.NoError(t, err)
	require.True(t, tx.To.IsNone())
	require.Zero(t, tx.GasPrice.Sign())
	require.Zero(t, tx.ChainID)
}

func TestParseTxFileErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"bad json", `{`},
		{"missing from", `{}`},
		{"bad to", `{"from": "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", "to": "0x12"}`},
		{"bad quantity", `{"from": "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", "nonce": "abc"}`},
		{"nonce overflow", `{"from": "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", "nonce": "0x10000000000000000"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTxFile([]byte(tt.json))
			require.Error(t, err)
		})
	}
}
