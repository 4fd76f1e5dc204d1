// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"sync"
)

// Awaitable is implemented by deferred values.
//
// A synchronous benchmark that gets an Awaitable back from its callable
// fails with ErrAsyncMismatch.
type Awaitable interface {
	Await(ctx context.Context) error
}

// Future is a deferred outcome that settles exactly once.
//
// Thread Safety: Safe for concurrent use.
type Future struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and returns a Future settled with its
// result. A panic in fn rejects the Future with a *PanicError.
func Go(fn func() error) *Future {
	f := newFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.settle(&PanicError{Value: r})
			}
		}()
		f.settle(fn())
	}()
	return f
}

// Resolved returns a Future that has already succeeded.
func Resolved() *Future {
	f := newFuture()
	f.settle(nil)
	return f
}

// Rejected returns a Future that has already failed with err.
func Rejected(err error) *Future {
	f := newFuture()
	f.settle(err)
	return f
}

func (f *Future) settle(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the Future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future settles or ctx is done.
//
// Outputs:
//   - error: The rejection error, nil on success, or ctx.Err() if ctx
//     finished first.
func (f *Future) Await(ctx context.Context) error {
	settled, err := f.wait(ctx)
	if !settled {
		return ctx.Err()
	}
	return err
}

// wait reports whether the Future settled before ctx finished.
func (f *Future) wait(ctx context.Context) (bool, error) {
	select {
	case <-f.done:
		return true, f.err
	default:
	}
	select {
	case <-f.done:
		return true, f.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
