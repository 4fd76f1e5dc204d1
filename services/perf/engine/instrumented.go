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
	"errors"
	"fmt"

	"github.com/AleutianAI/perfbench/services/perf/sample"
)

// Func is the general synchronous callable form.
type Func func() (any, error)

// AsyncFunc is the general asynchronous callable form. The call itself
// blocks until the operation settles.
type AsyncFunc func(ctx context.Context) error

// Kind tells whether a callable settles on return or through a Future.
type Kind int

const (
	// KindSync callables settle when they return.
	KindSync Kind = iota

	// KindAsync callables settle through a Future or a context-aware call.
	KindAsync
)

// String returns "sync" or "async".
func (k Kind) String() string {
	if k == KindAsync {
		return "async"
	}
	return "sync"
}

// invoker runs one invocation of a callable. An *abandonedError means the
// deferred value was still pending when ctx finished.
type invoker func(ctx context.Context) (any, error)

// Instrumented is a callable bound to a reference in an Engine.
//
// Each call to Invoke records one trial under Reference. The value stays
// valid until Engine.Clear.
//
// Thread Safety: Invoke is safe for concurrent use; trials from concurrent
// callers interleave in the same history.
type Instrumented struct {
	engine    *Engine
	reference string
	kind      Kind
	call      invoker
}

// Reference returns the opaque identifier the trials are recorded under.
func (v *Instrumented) Reference() string {
	return v.reference
}

// Kind returns the shape of the wrapped callable.
func (v *Instrumented) Kind() Kind {
	return v.kind
}

// Invoke runs the callable once and records the trial.
//
// Description:
//
//	Captures a trial around the call, records it and returns the callable's
//	outcome unchanged. A failing invocation is still recorded. A panic is
//	recovered and returned as a *PanicError.
//
// Inputs:
//   - ctx: Context for asynchronous callables. Must not be nil.
//
// Outputs:
//   - any: The callable's value, nil for forms that return none.
//   - error: The callable's error, ErrReferenceNotFound after Clear, or
//     ctx.Err() if ctx finished before a Future settled. In the last case
//     no trial is recorded.
func (v *Instrumented) Invoke(ctx context.Context) (any, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: context must not be nil", ErrInvalidArgument)
	}
	if _, err := v.engine.Lookup(v); err != nil {
		return nil, err
	}
	out, err := v.invoke(ctx, v.kind)
	var abandoned *abandonedError
	if errors.As(err, &abandoned) {
		return nil, abandoned.cause
	}
	return out, err
}

// invoke times one call. In KindAsync mode an Awaitable returned by a
// synchronous callable is awaited before the trial finishes. The abandoned
// case is returned as is.
func (v *Instrumented) invoke(ctx context.Context, mode Kind) (any, error) {
	call := v.call
	if mode == KindAsync && v.kind == KindSync {
		call = awaitResult(call)
	}

	trial := sample.Start(v.engine.probe)
	out, err := protect(ctx, call)
	trial.Finish()

	var abandoned *abandonedError
	if errors.As(err, &abandoned) {
		return nil, err
	}
	v.engine.record(ctx, v, trial, err)
	return out, err
}

// protect converts a panic in call into a *PanicError.
func protect(ctx context.Context, call invoker) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &PanicError{Value: r}
		}
	}()
	return call(ctx)
}

// -----------------------------------------------------------------------------
// Callable adaptation
// -----------------------------------------------------------------------------

// adaptSync returns an invoker for the synchronous callable forms.
func adaptSync(target any) (invoker, bool) {
	switch fn := target.(type) {
	case Func:
		if fn == nil {
			return nil, false
		}
		return func(context.Context) (any, error) { return fn() }, true
	case func() (any, error):
		if fn == nil {
			return nil, false
		}
		return func(context.Context) (any, error) { return fn() }, true
	case func():
		if fn == nil {
			return nil, false
		}
		return func(context.Context) (any, error) {
			fn()
			return nil, nil
		}, true
	case func() error:
		if fn == nil {
			return nil, false
		}
		return func(context.Context) (any, error) { return nil, fn() }, true
	case func() any:
		if fn == nil {
			return nil, false
		}
		return func(context.Context) (any, error) { return fn(), nil }, true
	}
	return nil, false
}

// adaptAsync returns an invoker for the asynchronous callable forms.
func adaptAsync(target any) (invoker, bool) {
	switch fn := target.(type) {
	case AsyncFunc:
		if fn == nil {
			return nil, false
		}
		return func(ctx context.Context) (any, error) { return nil, fn(ctx) }, true
	case func(context.Context) error:
		if fn == nil {
			return nil, false
		}
		return func(ctx context.Context) (any, error) { return nil, fn(ctx) }, true
	case func() *Future:
		if fn == nil {
			return nil, false
		}
		return func(ctx context.Context) (any, error) { return nil, settle(ctx, fn()) }, true
	case func(context.Context) *Future:
		if fn == nil {
			return nil, false
		}
		return func(ctx context.Context) (any, error) { return nil, settle(ctx, fn(ctx)) }, true
	}
	return nil, false
}

// awaitResult wraps call so that a successful Awaitable result is waited on.
func awaitResult(call invoker) invoker {
	return func(ctx context.Context) (any, error) {
		out, err := call(ctx)
		if err != nil {
			return out, err
		}
		a, ok := out.(Awaitable)
		if !ok {
			return out, nil
		}
		if f, ok := a.(*Future); ok {
			return out, settle(ctx, f)
		}
		if err := a.Await(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return out, &abandonedError{cause: ctxErr}
			}
			return out, err
		}
		return out, nil
	}
}

// settle waits for f. A nil Future counts as resolved.
func settle(ctx context.Context, f *Future) error {
	if f == nil {
		return nil
	}
	settled, err := f.wait(ctx)
	if !settled {
		return &abandonedError{cause: err}
	}
	return err
}
