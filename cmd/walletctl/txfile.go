// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/signing"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// quantity accepts a JSON number, a decimal string or a 0x hex string.
type quantity struct {
	*big.Int
}

func (q *quantity) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	v, ok := math.ParseBig256(s)
	if !ok {
		return fmt.Errorf("invalid quantity %s", data)
	}
	q.Int = v
	return nil
}

func (q quantity) big() *big.Int {
	if q.Int == nil {
		return new(big.Int)
	}
	return q.Int
}

func (q quantity) uint64() (uint64, error) {
	v := q.big()
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s does not fit in 64 bits", v)
	}
	return v.Uint64(), nil
}

// txFile is the JSON form sign-tx reads. "to" is omitted for contract
// creation.
type txFile struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Nonce    quantity      `json:"nonce"`
	GasPrice quantity      `json:"gasPrice"`
	Gas      quantity      `json:"gas"`
	Value    quantity      `json:"value"`
	Data     hexutil.Bytes `json:"data"`
	ChainID  quantity      `json:"chainId"`
}

func parseTxFile(data []byte) (signing.UnsignedTransaction, error) {
	var f txFile
	if err := json.Unmarshal(data, &f); err != nil {
		return signing.UnsignedTransaction{}, fmt.Errorf("transaction file: %w", err)
	}

	from, err := wallet.ParseAddress(f.From)
	if err != nil {
		return signing.UnsignedTransaction{}, fmt.Errorf("from: %w", err)
	}

	to := fn.None[common.Address]()
	if f.To != "" {
		addr, err := wallet.ParseAddress(f.To)
		if err != nil {
			return signing.UnsignedTransaction{}, fmt.Errorf("to: %w", err)
		}
		to = fn.Some(addr)
	}

	nonce, err := f.Nonce.uint64()
	if err != nil {
		return signing.UnsignedTransaction{}, fmt.Errorf("nonce: %w", err)
	}
	gas, err := f.Gas.uint64()
	if err != nil {
		return signing.UnsignedTransaction{}, fmt.Errorf("gas: %w", err)
	}
	chainID, err := f.ChainID.uint64()
	if err != nil {
		return signing.UnsignedTransaction{}, fmt.Errorf("chainId: %w", err)
	}

	return signing.UnsignedTransaction{
		Nonce:    nonce,
		GasPrice: f.GasPrice.big(),
		GasLimit: gas,
		To:       to,
		Value:    f.Value.big(),
		Data:     f.Data,
		ChainID:  chainID,
		Account:  wallet.EthereumAccount{Address: from},
	}, nil
}
