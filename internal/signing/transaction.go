// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package signing

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// ErrInvalidTransaction rejects negative amounts.
var ErrInvalidTransaction = errors.New("invalid transaction")

// UnsignedTransaction is a legacy (pre-typed) transaction. A ChainID of 0
// selects pre-EIP-155 signing without replay protection.
type UnsignedTransaction struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       fn.Option[common.Address] // None for contract creation
	Value    *big.Int
	Data     []byte
	ChainID  uint64
	Account  wallet.EthereumAccount
}

// legacyTx is the RLP layout of a signed legacy transaction.
type legacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (tx UnsignedTransaction) to() []byte {
	var to []byte
	tx.To.WhenSome(func(a common.Address) {
		to = a.Bytes()
	})
	return to
}

func (tx UnsignedTransaction) validate() error {
	if tx.GasPrice != nil && tx.GasPrice.Sign() < 0 {
		return fmt.Errorf("%w: negative gas price", ErrInvalidTransaction)
	}
	if tx.Value != nil && tx.Value.Sign() < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidTransaction)
	}
	return nil
}

// SigningHash returns the digest that gets signed: keccak256 of the RLP of
// the six transaction fields, followed by [chainID, 0, 0] when ChainID is
// set.
func SigningHash(tx UnsignedTransaction) ([]byte, error) {
	if err := tx.validate(); err != nil {
		return nil, err
	}

	fields := []any{
		tx.Nonce,
		nonNil(tx.GasPrice),
		tx.GasLimit,
		tx.to(),
		nonNil(tx.Value),
		tx.Data,
	}
	if tx.ChainID != 0 {
		fields = append(fields, tx.ChainID, uint(0), uint(0))
	}

	enc, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, fmt.Errorf("rlp encode: %w", err)
	}
	return crypto.Keccak256(enc), nil
}

// SignTransaction signs tx and returns the RLP list
// [nonce, gasPrice, gasLimit, to, value, data, v, r, s]. With a chain id, v
// is chainID*2 + 35 + recovery id; without one it is 27 + recovery id.
func SignTransaction(tx UnsignedTransaction, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNoKey
	}
	hash, err := SigningHash(tx)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}

	recID := uint64(sig[crypto.RecoveryIDOffset])
	v := new(big.Int).SetUint64(27 + recID)
	if tx.ChainID != 0 {
		v = new(big.Int).SetUint64(tx.ChainID)
		v.Mul(v, big.NewInt(2))
		v.Add(v, new(big.Int).SetUint64(35+recID))
	}

	return rlp.EncodeToBytes(&legacyTx{
		Nonce:    tx.Nonce,
		GasPrice: nonNil(tx.GasPrice),
		GasLimit: tx.GasLimit,
		To:       tx.to(),
		Value:    nonNil(tx.Value),
		Data:     tx.Data,
		V:        v,
		R:        new(big.Int).SetBytes(sig[:32]),
		S:        new(big.Int).SetBytes(sig[32:64]),
	})
}

// TxHash is the transaction id of a signed transaction: keccak256 of its
// raw bytes.
func TxHash(raw []byte) common.Hash {
	return crypto.Keccak256Hash(raw)
}
