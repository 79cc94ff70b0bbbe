// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// ZeroBytes overwrites b with zeros in a way the compiler will not elide.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}

// SecureBytes owns a copy of a secret (a master key, a passphrase) and hands
// it out only inside a callback. Destroy zeroes it.
type SecureBytes struct {
	mu   sync.RWMutex
	data []byte
}

// NewSecureBytes copies b; the caller may zero its own slice afterwards.
func NewSecureBytes(b []byte) *SecureBytes {
	if b == nil {
		return &SecureBytes{}
	}
	data := make([]byte, len(b))
	copy(data, b)
	return &SecureBytes{data: data}
}

// WithBytes runs fn with the secret under a read lock. The slice must not
// escape fn.
func (s *SecureBytes) WithBytes(fn func([]byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// Destroy zeroes the secret. Safe to call more than once.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ZeroBytes(s.data)
	s.data = nil
}

// IsEmpty reports whether nothing (or nothing anymore) is held.
func (s *SecureBytes) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data) == 0
}
