// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"errors"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// ErrClosed is delivered to completions of operations started after Close.
var ErrClosed = errors.New("keystore closed")

// Dispatcher runs completion callbacks on the caller's chosen context, for
// example a UI thread.
type Dispatcher interface {
	Dispatch(f func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(f func())

func (d DispatcherFunc) Dispatch(f func()) { d(f) }

// MainQueue is a Dispatcher backed by one goroutine draining a FIFO, so
// completions run one at a time in submission order.
type MainQueue struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

// NewMainQueue starts the queue goroutine.
func NewMainQueue() *MainQueue {
	q := &MainQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// Dispatch enqueues f. After Stop, f runs on the calling goroutine so that
// no completion is ever dropped.
func (q *MainQueue) Dispatch(f func()) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		f()
		return
	}
	q.queue = append(q.queue, f)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Stop runs everything already queued, then ends the goroutine.
func (q *MainQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.stopped = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *MainQueue) run() {
	defer close(q.done)
	for {
		<-q.wake
		for {
			q.mu.Lock()
			if len(q.queue) == 0 {
				stopped := q.stopped
				q.mu.Unlock()
				if stopped {
					return
				}
				break
			}
			f := q.queue[0]
			q.queue[0] = nil
			q.queue = q.queue[1:]
			q.mu.Unlock()

			f()
		}
	}
}

// runAsync runs work on a managed goroutine and delivers its result through
// the dispatcher exactly once.
func runAsync[T any](k *Keystore, ctx context.Context, work func(context.Context) (T, error), done func(fn.Result[T])) {
	deliver := func(v T, err error) {
		res := fn.Ok(v)
		if err != nil {
			res = fn.Err[T](err)
		}
		k.dispatcher.Dispatch(func() { done(res) })
	}

	started := k.workers.Go(ctx, func(ctx context.Context) {
		deliver(work(ctx))
	})
	if !started {
		var zero T
		err := ctx.Err()
		if err == nil {
			err = ErrClosed
		}
		deliver(zero, err)
	}
}

// CreateAccountAsync is CreateAccount with its result delivered to done.
func (k *Keystore) CreateAccountAsync(ctx context.Context, done func(fn.Result[wallet.EthereumAccount])) {
	runAsync(k, ctx, func(context.Context) (wallet.EthereumAccount, error) {
		return k.CreateAccount()
	}, done)
}

// ImportWallet is Import with its result delivered to done.
func (k *Keystore) ImportWallet(ctx context.Context, it wallet.ImportType, done func(fn.Result[wallet.Wallet])) {
	runAsync(k, ctx, func(ctx context.Context) (wallet.Wallet, error) {
		return k.Import(ctx, it)
	}, done)
}

// ExportAsync is Export with its result delivered to done.
func (k *Keystore) ExportAsync(ctx context.Context, account wallet.EthereumAccount, newPassword string, done func(fn.Result[string])) {
	runAsync(k, ctx, func(ctx context.Context) (string, error) {
		return k.Export(ctx, account, newPassword)
	}, done)
}

// DeleteAsync is Delete with its result delivered to done.
func (k *Keystore) DeleteAsync(ctx context.Context, w wallet.Wallet, done func(error)) {
	runAsync(k, ctx, func(context.Context) (struct{}, error) {
		return struct{}{}, k.Delete(w)
	}, func(r fn.Result[struct{}]) {
		_, err := r.Unpack()
		done(err)
	})
}
