// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_KnownValues(t *testing.T) {
	s, err := Compute([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)

	assert.Equal(t, 8, s.Samples)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 40.0, s.Sum)
	assert.Equal(t, 5.0, s.Avg)
	// Sum of squared deviations is 32, sample variance 32/7.
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.StdDev, 1e-12)
	assert.True(t, s.Valid())
}

func TestCompute_SingleSampleStdDevIsNaN(t *testing.T) {
	s, err := Compute([]float64{3.5})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Samples)
	assert.Equal(t, 3.5, s.Min)
	assert.Equal(t, 3.5, s.Max)
	assert.Equal(t, 3.5, s.Avg)
	assert.True(t, math.IsNaN(s.StdDev), "StdDev = %v, want NaN", s.StdDev)
}

func TestCompute_Empty(t *testing.T) {
	s, err := Compute(nil)
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.False(t, s.Valid())
}

func TestCompute_InfiniteSample(t *testing.T) {
	s, err := Compute([]float64{100, math.Inf(1)})
	require.NoError(t, err)

	assert.True(t, math.IsInf(s.Max, 1))
	assert.True(t, math.IsInf(s.Avg, 1))
	assert.Equal(t, 100.0, s.Min)
}

func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(50)
		values := make([]float64, n)
		var sum float64
		for i := range values {
			values[i] = rng.Float64()*2000 - 1000
			sum += values[i]
		}

		s, err := Compute(values)
		require.NoError(t, err)

		assert.InDelta(t, sum, s.Avg*float64(s.Samples), 1e-6, "avg*n must equal sum")
		for _, v := range values {
			assert.LessOrEqual(t, s.Min, v)
			assert.GreaterOrEqual(t, s.Max, v)
		}
		if n > 1 {
			assert.GreaterOrEqual(t, s.StdDev, 0.0)
		}
	}
}
