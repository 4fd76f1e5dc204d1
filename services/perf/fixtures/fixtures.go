// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixtures builds input slices for benchmarked callables.
package fixtures

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/AleutianAI/perfbench/services/perf/engine"
)

// DefaultSize is the input size callers fall back to when none is
// configured.
const DefaultSize = 1000

// ErrInvalidArgument is the engine's sentinel, so a single errors.Is check
// covers both benchmarking and input generation.
var ErrInvalidArgument = engine.ErrInvalidArgument

// Custom returns size values produced by gen, in call order.
//
// Inputs:
//   - gen: Called once per element. Must not be nil.
//   - size: Number of elements. Zero yields an empty slice.
//
// Outputs:
//   - []T: The generated slice.
//   - error: ErrInvalidArgument if gen is nil or size is negative.
func Custom[T any](gen func() T, size int) ([]T, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: nil generator", ErrInvalidArgument)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}
	out := make([]T, size)
	for i := range out {
		out[i] = gen()
	}
	return out, nil
}

// RandomNumbers returns size floats in [0, 1).
func RandomNumbers(size int) ([]float64, error) {
	return Custom(rand.Float64, size)
}

// RandomStrings returns size random UUID strings.
func RandomStrings(size int) ([]string, error) {
	return Custom(uuid.NewString, size)
}
