// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine measures arbitrary callables in-process.
//
// # Overview
//
// The Engine wraps a callable into an Instrumented variant bound to a
// fresh reference, invokes it in a trial loop, records one Trial per
// invocation in a history.Store and returns the aggregated history.Result.
//
//	┌──────────────┐  Instrument   ┌──────────────┐  Invoke   ┌──────────────┐
//	│   callable   │──────────────▶│ Instrumented │──────────▶│ sample.Trial │
//	└──────────────┘               │  (reference) │           └──────┬───────┘
//	                               └──────────────┘                  │ Record
//	                                                                 ▼
//	┌──────────────┐        Results(reference)            ┌──────────────────┐
//	│history.Result│◀─────────────────────────────────────│  history.Store   │
//	└──────────────┘                                      └──────────────────┘
//
// # Usage
//
//	eng, err := engine.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := eng.Benchmark(ctx, func() { _ = add(1, 2) }, engine.WithMaxIterations(100))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("avg %.6f ms over %d trials\n", res.ExecutionTime.Avg, res.Samples())
//
// Asynchronous callables return a *Future and go through BenchmarkAsync:
//
//	res, err := eng.BenchmarkAsync(ctx, func() *engine.Future {
//	    return engine.Go(func() error { return fetch(ctx) })
//	})
//
// # Accumulation
//
// Every raw callable passed to Benchmark gets a new reference, so two calls
// with the same function value produce two independent histories. History
// accumulates only when the Instrumented value returned by Instrument is
// passed back in; its reported statistics then cover every trial recorded
// under its reference so far.
//
// # Limits
//
// A trial loop always runs at least once and stops as soon as either the
// iteration cap or the time budget is reached. There is no warm-up and no
// outlier rejection. An asynchronous callable that never settles blocks its
// trial until ctx is cancelled.
//
// # Thread Safety
//
// The Engine guards its maps, but overlapping benchmark calls on the same
// Instrumented variant interleave their trials and see each other's
// history. Serialize such callers externally.
package engine
