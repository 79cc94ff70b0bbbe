// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package signing

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidTypedData is returned for an entry whose value does not fit its
// declared type.
var ErrInvalidTypedData = errors.New("invalid typed data")

// TypedData is one entry of a legacy (eth_signTypedData v1) payload.
type TypedData struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// TypedDataHash is keccak256(keccak256(schemas) || keccak256(values)), where
// schemas concatenates "type name" of every entry and values concatenates
// the tightly packed values, both in input order.
func TypedDataHash(parts []TypedData) ([]byte, error) {
	var schemas, values []byte
	for i, p := range parts {
		packed, err := p.pack()
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, p.Name, err)
		}
		schemas = append(schemas, p.Type+" "+p.Name...)
		values = append(values, packed...)
	}
	return crypto.Keccak256(crypto.Keccak256(schemas), crypto.Keccak256(values)), nil
}

// SignTypedData signs the TypedDataHash of parts.
func SignTypedData(parts []TypedData, key *ecdsa.PrivateKey) ([]byte, error) {
	hash, err := TypedDataHash(parts)
	if err != nil {
		return nil, err
	}
	return SignHash(hash, key)
}

// pack returns the Solidity tightly packed encoding of the value.
func (d TypedData) pack() ([]byte, error) {
	typ := strings.TrimSpace(d.Type)

	switch {
	case typ == "string":
		s, ok := d.Value.(string)
		if !ok {
			return nil, typeErr(typ, d.Value)
		}
		return []byte(s), nil

	case typ == "bytes":
		return toBytes(d.Value)

	case typ == "bool":
		b, err := toBool(d.Value)
		if err != nil {
			return nil, err
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case typ == "address":
		return packAddress(d.Value)

	case strings.HasPrefix(typ, "bytes"):
		n, err := strconv.Atoi(typ[len("bytes"):])
		if err != nil || n < 1 || n > 32 {
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTypedData, typ)
		}
		b, err := toBytes(d.Value)
		if err != nil {
			return nil, err
		}
		if len(b) > n {
			return nil, fmt.Errorf("%w: %d bytes do not fit %s", ErrInvalidTypedData, len(b), typ)
		}
		return common.RightPadBytes(b, n), nil

	case strings.HasPrefix(typ, "uint"):
		bits, err := intBits(typ, "uint")
		if err != nil {
			return nil, err
		}
		v, err := toBigInt(d.Value)
		if err != nil {
			return nil, err
		}
		if v.Sign() < 0 || v.BitLen() > bits {
			return nil, fmt.Errorf("%w: %s out of range for %s", ErrInvalidTypedData, v, typ)
		}
		return common.LeftPadBytes(v.Bytes(), bits/8), nil

	case strings.HasPrefix(typ, "int"):
		bits, err := intBits(typ, "int")
		if err != nil {
			return nil, err
		}
		v, err := toBigInt(d.Value)
		if err != nil {
			return nil, err
		}
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%w: %s out of range for %s", ErrInvalidTypedData, v, typ)
		}
		word := gmath.U256Bytes(new(big.Int).Set(v))
		return word[32-bits/8:], nil
	}

	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTypedData, typ)
}

func intBits(typ, prefix string) (int, error) {
	suffix := typ[len(prefix):]
	if suffix == "" {
		return 256, nil
	}
	bits, err := strconv.Atoi(suffix)
	if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
		return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidTypedData, typ)
	}
	return bits, nil
}

func typeErr(typ string, v any) error {
	return fmt.Errorf("%w: %T is not a %s", ErrInvalidTypedData, v, typ)
}

// toBytes accepts raw bytes, 0x-prefixed hex, or any other string as UTF-8.
func toBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		if has0x(t) {
			b, err := hexutil.Decode(t)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidTypedData, err)
			}
			return b, nil
		}
		return []byte(t), nil
	default:
		return nil, typeErr("bytes", v)
	}
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidTypedData, err)
		}
		return b, nil
	default:
		return false, typeErr("bool", v)
	}
}

func packAddress(v any) ([]byte, error) {
	switch t := v.(type) {
	case common.Address:
		return t.Bytes(), nil
	case string:
		if !common.IsHexAddress(t) {
			return nil, fmt.Errorf("%w: bad address %q", ErrInvalidTypedData, t)
		}
		return common.HexToAddress(t).Bytes(), nil
	default:
		return nil, typeErr("address", v)
	}
}

// toBigInt accepts Go integers, *big.Int, JSON numbers, integral floats and
// decimal or 0x-hex strings.
func toBigInt(v any) (*big.Int, error) {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil, typeErr("integer", v)
		}
		return new(big.Int).Set(t), nil
	case int:
		return big.NewInt(int64(t)), nil
	case int64:
		return big.NewInt(t), nil
	case uint64:
		return new(big.Int).SetUint64(t), nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrInvalidTypedData, t)
		}
		b, _ := new(big.Float).SetFloat64(t).Int(nil)
		return b, nil
	case json.Number:
		return parseBigInt(t.String())
	case string:
		return parseBigInt(t)
	default:
		return nil, typeErr("integer", v)
	}
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")

	base := 10
	if has0x(body) {
		base = 16
		body = body[2:]
	}
	v, ok := new(big.Int).SetString(body, base)
	if !ok {
		return nil, fmt.Errorf("%w: bad integer %q", ErrInvalidTypedData, s)
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

func has0x(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
