// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"errors"
	"sync"
	"testing"
)

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ZeroBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("byte %d not zeroed: %d", i, v)
		}
	}

	// Must not panic.
	ZeroBytes(nil)
	ZeroBytes([]byte{})
}

func TestSecureBytesCopiesInput(t *testing.T) {
	src := []byte("master")
	s := NewSecureBytes(src)
	ZeroBytes(src)

	err := s.WithBytes(func(b []byte) error {
		if string(b) != "master" {
			t.Errorf("got %q, want %q", b, "master")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSecureBytesWithBytesError(t *testing.T) {
	s := NewSecureBytes([]byte("x"))
	sentinel := errors.New("boom")
	if err := s.WithBytes(func([]byte) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want sentinel", err)
	}
}

func TestSecureBytesDestroy(t *testing.T) {
	s := NewSecureBytes([]byte("secret"))
	var held []byte
	_ = s.WithBytes(func(b []byte) error {
		held = b
		return nil
	})

	s.Destroy()
	s.Destroy()

	if !s.IsEmpty() {
		t.Error("destroyed value should be empty")
	}
	for _, v := range held {
		if v != 0 {
			t.Fatal("backing array not zeroed on destroy")
		}
	}
	if !NewSecureBytes(nil).IsEmpty() {
		t.Error("nil input should be empty")
	}
}

func TestSecureBytesConcurrentReadAndDestroy(t *testing.T) {
	s := NewSecureBytes([]byte("concurrent"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithBytes(func(b []byte) error {
				if len(b) != 0 && len(b) != len("concurrent") {
					t.Errorf("unexpected length %d", len(b))
				}
				return nil
			})
		}()
	}
	s.Destroy()
	wg.Wait()
}
