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
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/perfbench/services/perf/history"
	"github.com/AleutianAI/perfbench/services/perf/sample"
	"github.com/AleutianAI/perfbench/services/perf/telemetry"
)

// Engine instruments callables and runs trial loops over them.
//
// Description:
//
//	Engine owns the identity map from Instrumented values to references and
//	the history store their trials are recorded in. Both are emptied by
//	Clear.
//
// Thread Safety: Safe for concurrent use. See the package documentation for
// overlapping benchmarks of the same Instrumented value.
type Engine struct {
	mu         sync.RWMutex
	references map[*Instrumented]string

	store      *history.Store
	probe      sample.Probe
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	tracerName string
}

// New creates an Engine.
//
// Description:
//
//	Applies opts over the default probe, which uses a monotonic clock and
//	the runtime heap metric. The probe is checked once here so that no
//	trial can start without working readers.
//
// Outputs:
//   - *Engine: Ready to use.
//   - error: ErrEnvironmentUnsupported if the clock or memory reader is
//     missing or unsupported.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		references: make(map[*Instrumented]string),
		store:      history.NewStore(),
		probe:      sample.DefaultProbe(),
		logger:     slog.Default(),
		tracerName: tracerName,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.probe.Check(); err != nil {
		return nil, err
	}
	return e, nil
}

// Instrument binds target to a new reference.
//
// Description:
//
//	Accepts the synchronous forms func(), func() error, func() any,
//	func() (any, error) and Func, and the asynchronous forms
//	func() *Future, func(context.Context) *Future,
//	func(context.Context) error and AsyncFunc. An *Instrumented that is
//	still registered is returned unchanged.
//
// Outputs:
//   - *Instrumented: The registered variant.
//   - error: ErrInvalidArgument for any other value, ErrReferenceNotFound
//     for an *Instrumented that is not registered here.
func (e *Engine) Instrument(target any) (*Instrumented, error) {
	if v, ok := target.(*Instrumented); ok {
		if v == nil {
			return nil, fmt.Errorf("%w: nil *Instrumented", ErrInvalidArgument)
		}
		if _, err := e.Lookup(v); err != nil {
			return nil, err
		}
		return v, nil
	}
	if call, ok := adaptSync(target); ok {
		return e.register(call, KindSync), nil
	}
	if call, ok := adaptAsync(target); ok {
		return e.register(call, KindAsync), nil
	}
	return nil, fmt.Errorf("%w: %T is not a supported callable", ErrInvalidArgument, target)
}

func (e *Engine) register(call invoker, kind Kind) *Instrumented {
	v := &Instrumented{
		engine:    e,
		reference: uuid.NewString(),
		kind:      kind,
		call:      call,
	}
	e.mu.Lock()
	e.references[v] = v.reference
	e.mu.Unlock()
	return v
}

// Lookup returns the reference v is registered under.
func (e *Engine) Lookup(v *Instrumented) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: nil *Instrumented", ErrInvalidArgument)
	}
	e.mu.RLock()
	reference, ok := e.references[v]
	e.mu.RUnlock()
	if !ok {
		return "", ErrReferenceNotFound
	}
	return reference, nil
}

// Registered returns the number of live Instrumented values.
func (e *Engine) Registered() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.references)
}

// Results aggregates the trials recorded under reference.
//
// An unknown reference yields a Result with zero samples.
func (e *Engine) Results(reference string) *history.Result {
	return e.store.Results(reference)
}

// Clear forgets every reference and discards all recorded trials.
//
// Instrumented values handed out before Clear fail with
// ErrReferenceNotFound afterwards.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.references = make(map[*Instrumented]string)
	e.mu.Unlock()
	e.store.Reset()
	e.logger.Debug("engine cleared")
}

// Benchmark runs a synchronous callable in a trial loop.
//
// Description:
//
//	Instruments target unless it already is an *Instrumented, then invokes
//	it until MaxIterations trials ran or MaxDuration elapsed, whichever
//	comes first, with at least one trial. Errors returned or panicked by
//	the callable are collected into the Result and do not stop the loop.
//
// Inputs:
//   - ctx: Carries the span and is checked between trials. Must not be nil.
//   - target: A synchronous callable or an *Instrumented of KindSync.
//   - opts: Loop bounds.
//
// Outputs:
//   - *history.Result: Statistics over every trial recorded under the
//     reference, including those from earlier calls.
//   - error: ErrAsyncMismatch for an asynchronous target, or for a callable
//     that returned an Awaitable; in the latter case the first trial stays
//     recorded. ErrInvalidArgument, ErrReferenceNotFound or ctx.Err()
//     otherwise.
//
// Example:
//
//	res, err := eng.Benchmark(ctx, func() error { return parse(input) },
//	    engine.WithMaxIterations(50), engine.WithMaxDuration(200*time.Millisecond))
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Benchmark(ctx context.Context, target any, opts ...RunOption) (*history.Result, error) {
	return e.benchmark(ctx, target, KindSync, opts)
}

// BenchmarkAsync runs an asynchronous callable in a trial loop.
//
// Description:
//
//	Like Benchmark, but each trial waits for the callable to settle before
//	its end readings are taken. Synchronous callables are accepted; when
//	one returns an Awaitable, that value is awaited within the trial,
//	otherwise the call settles on return. A rejection is collected into
//	the Result like any other error.
//
// Outputs:
//   - *history.Result: Statistics over every trial recorded under the
//     reference.
//   - error: ctx.Err() if ctx finished while a trial was pending; that
//     trial is not recorded. ErrInvalidArgument or ErrReferenceNotFound
//     otherwise.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) BenchmarkAsync(ctx context.Context, target any, opts ...RunOption) (*history.Result, error) {
	return e.benchmark(ctx, target, KindAsync, opts)
}

func (e *Engine) benchmark(ctx context.Context, target any, mode Kind, opts []RunOption) (*history.Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: context must not be nil", ErrInvalidArgument)
	}

	cfg := DefaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, e.tracerName, "engine.Engine.Benchmark",
		trace.WithAttributes(
			attribute.String("mode", mode.String()),
			attribute.Int("max_iterations", cfg.MaxIterations),
			attribute.Int64("max_duration_ms", cfg.MaxDuration.Milliseconds()),
		),
	)
	defer span.End()

	res, err := e.run(ctx, span, target, mode, cfg)
	e.metrics.RecordBenchmark(ctx, mode.String(), err)
	telemetry.SetStatus(span, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, span trace.Span, target any, mode Kind, cfg RunConfig) (*history.Result, error) {
	variant, err := e.resolve(target, mode)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("reference", variant.reference))

	logger := telemetry.LoggerWithTrace(ctx, e.logger).With(
		slog.String("reference", variant.reference),
		slog.String("mode", mode.String()),
	)

	var errs []error
	start := e.probe.Clock.Now()
	iterations := 0
	for {
		out, err := variant.invoke(ctx, mode)
		if err != nil {
			var abandoned *abandonedError
			if errors.As(err, &abandoned) {
				logger.Debug("benchmark abandoned", slog.Int("iterations", iterations))
				return nil, abandoned.cause
			}
			errs = append(errs, err)
		} else if mode == KindSync {
			if _, ok := out.(Awaitable); ok {
				return nil, fmt.Errorf("%w: callable returned %T", ErrAsyncMismatch, out)
			}
		}
		iterations++

		if iterations >= cfg.MaxIterations || e.probe.Clock.Now()-start >= cfg.MaxDuration {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	res := e.store.Results(variant.reference)
	res.AddErrors(errs...)

	span.SetAttributes(
		attribute.Int("iterations", iterations),
		attribute.Int("errors", len(errs)),
		attribute.Int("samples", res.Samples()),
	)
	logger.Debug("benchmark finished",
		slog.Int("iterations", iterations),
		slog.Int("errors", len(errs)),
		slog.Int("samples", res.Samples()),
		slog.Duration("elapsed", e.probe.Clock.Now()-start),
	)
	return res, nil
}

// resolve returns the variant to loop over for mode.
func (e *Engine) resolve(target any, mode Kind) (*Instrumented, error) {
	if v, ok := target.(*Instrumented); ok {
		if _, err := e.Lookup(v); err != nil {
			return nil, err
		}
		if mode == KindSync && v.kind == KindAsync {
			return nil, ErrAsyncMismatch
		}
		return v, nil
	}
	if mode == KindSync {
		if _, ok := adaptAsync(target); ok {
			return nil, ErrAsyncMismatch
		}
	}
	return e.Instrument(target)
}

// record stores trial under v's reference and updates metrics.
func (e *Engine) record(ctx context.Context, v *Instrumented, trial *sample.Trial, err error) {
	e.store.Record(v.reference, trial)
	e.metrics.RecordTrial(ctx, v.kind.String(), trial.ExecutionTimeMs(), err != nil)
}
