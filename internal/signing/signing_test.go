// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package signing

import (
	"crypto/ecdsa"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return key
}

func TestSignPersonalMessageVectors(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{
			name: "plain text",
			msg:  "Some data",
			want: "0xb91467e570a6466aa9e9876cbcd013baba02900b8979d43fe208a4a4f339f5fd6007e74cd82e037b800186422fc2da167c747ef045e5d18a5f5d4300f8e1a0291c",
		},
		{
			name: "hex-looking text is signed as text",
			msg:  "0x3f44c2dfea365f01c1ada3b7600db9e2999dfea9fe6c6017441eafcfbc06a543",
			want: "0x619b03743672e31ad1d7ee0e43f6802860082d161acc602030c495a12a68b791666764ca415a2b3083595aee448402874a5a376ea91855051e04c7b3e4693d201c",
		},
	}

	key := testKey(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := SignPersonalMessage([]byte(tt.msg), key)
			require.NoError(t, err)
			require.Equal(t, tt.want, hexutil.Encode(sig))
		})
	}
}

func TestSignHashRejectsBadInput(t *testing.T) {
	_, err := SignHash(make([]byte, 31), testKey(t))
	require.ErrorIs(t, err, ErrInvalidHash)

	_, err = SignHash(make([]byte, 32), nil)
	require.ErrorIs(t, err, ErrNoKey)
}

func TestSignHashDeterministicAndRecoverable(t *testing.T) {
	key := testKey(t)
	want := crypto.PubkeyToAddress(key.PublicKey)

	rapid.Check(t, func(rt *rapid.T) {
		hash := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(rt, "hash")

		a, err := SignHash(hash, key)
		if err != nil {
			rt.Fatal(err)
		}
		b, err := SignHash(hash, key)
		if err != nil {
			rt.Fatal(err)
		}
		if hex.EncodeToString(a) != hex.EncodeToString(b) {
			rt.Fatal("signature is not deterministic")
		}
		if v := a[64]; v != 27 && v != 28 {
			rt.Fatalf("v = %d", v)
		}

		got, err := RecoverAddress(hash, a)
		if err != nil {
			rt.Fatal(err)
		}
		if got != want {
			rt.Fatalf("recovered %s, want %s", got.Hex(), want.Hex())
		}
	})
}

func TestSignMessageHashesWithoutPrefix(t *testing.T) {
	key := testKey(t)
	msg := []byte("hello")

	sig, err := SignMessage(msg, key)
	require.NoError(t, err)

	direct, err := SignHash(crypto.Keccak256(msg), key)
	require.NoError(t, err)
	require.Equal(t, direct, sig)

	personal, err := SignPersonalMessage(msg, key)
	require.NoError(t, err)
	require.NotEqual(t, personal, sig)
}

func TestSignBulk(t *testing.T) {
	key := testKey(t)
	msgs := [][]byte{[]byte("a"), []byte("b"), []byte("a")}

	sigs, err := SignBulk(msgs, key)
	require.NoError(t, err)
	require.Len(t, sigs, len(msgs))

	for i, msg := range msgs {
		single, err := SignMessage(msg, key)
		require.NoError(t, err)
		require.Equal(t, single, sigs[i], "message %d", i)
	}
	require.Equal(t, sigs[0], sigs[2])

	empty, err := SignBulk(nil, key)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestRecoverAddressForms(t *testing.T) {
	key := testKey(t)
	hash := crypto.Keccak256([]byte("x"))

	sig, err := SignHash(hash, key)
	require.NoError(t, err)

	raw := append([]byte(nil), sig...)
	raw[64] -= 27

	for _, s := range [][]byte{sig, raw} {
		addr, err := RecoverAddress(hash, s)
		require.NoError(t, err)
		require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
	}

	bad := append([]byte(nil), sig...)
	bad[64] = 5
	_, err = RecoverAddress(hash, bad)
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = RecoverAddress(hash, sig[:64])
	require.ErrorIs(t, err, ErrInvalidSignature)
}
