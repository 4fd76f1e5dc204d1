// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package suite names benchmarkable strategies and compares them.
//
// A Strategy builds a callable for a given input size. Run benchmarks one
// strategy through an engine.Engine; Compare benchmarks two and reports
// which was faster on average execution time.
package suite

import (
	"context"
	"fmt"
	"math"

	"github.com/AleutianAI/perfbench/services/perf/engine"
	"github.com/AleutianAI/perfbench/services/perf/history"
)

// Run builds s for size and benchmarks it.
//
// Asynchronous strategies go through BenchmarkAsync.
func Run(ctx context.Context, eng *engine.Engine, s *Strategy, size int, opts ...engine.RunOption) (*history.Result, error) {
	if s == nil || s.Build == nil {
		return nil, ErrNilStrategy
	}
	target, err := s.Build(size)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", s.Name, err)
	}
	if s.Async {
		return eng.BenchmarkAsync(ctx, target, opts...)
	}
	return eng.Benchmark(ctx, target, opts...)
}

// Comparison holds two results and their relative speed.
type Comparison struct {
	// NameA and NameB are the compared strategy names.
	NameA string `yaml:"name_a"`
	NameB string `yaml:"name_b"`

	A *history.Result `yaml:"-"`
	B *history.Result `yaml:"-"`

	// Faster is the name with the lower average execution time. A tie
	// names A.
	Faster string `yaml:"faster"`

	// Speedup is slower average divided by faster average. It is 1 when
	// both averages are equal and +Inf when only the faster one is zero.
	Speedup float64 `yaml:"speedup"`
}

// Compare benchmarks a and b with the same size and options.
//
// Outputs:
//   - *Comparison: Both results and the speed ratio.
//   - error: The first benchmark error, wrapped with the strategy name.
func Compare(ctx context.Context, eng *engine.Engine, a, b *Strategy, size int, opts ...engine.RunOption) (*Comparison, error) {
	if a == nil || b == nil {
		return nil, ErrNilStrategy
	}

	resA, err := Run(ctx, eng, a, size, opts...)
	if err != nil {
		return nil, fmt.Errorf("benchmarking %s: %w", a.Name, err)
	}
	resB, err := Run(ctx, eng, b, size, opts...)
	if err != nil {
		return nil, fmt.Errorf("benchmarking %s: %w", b.Name, err)
	}

	c := &Comparison{NameA: a.Name, NameB: b.Name, A: resA, B: resB}
	avgA, avgB := resA.ExecutionTime.Avg, resB.ExecutionTime.Avg
	fast, slow := avgA, avgB
	c.Faster = a.Name
	if avgB < avgA {
		fast, slow = avgB, avgA
		c.Faster = b.Name
	}
	c.Speedup = speedup(fast, slow)
	return c, nil
}

func speedup(fast, slow float64) float64 {
	switch {
	case fast == slow:
		return 1
	case fast == 0:
		return math.Inf(1)
	default:
		return slow / fast
	}
}
