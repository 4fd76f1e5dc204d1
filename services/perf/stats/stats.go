// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats aggregates numeric samples into summary statistics.
package stats

import (
	"errors"
	"math"
)

// ErrNoSamples indicates that no samples were provided.
var ErrNoSamples = errors.New("no samples collected")

// Stats summarizes a sequence of samples.
//
// Description:
//
//	StdDev is the sample standard deviation (Bessel's correction, N-1
//	denominator). With a single sample the denominator is zero and StdDev
//	is NaN; callers that display it should render it as undefined rather
//	than substituting zero.
//
// Thread Safety: Safe for concurrent read access after creation.
type Stats struct {
	Samples int     `yaml:"samples"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Sum     float64 `yaml:"sum"`
	Avg     float64 `yaml:"avg"`
	StdDev  float64 `yaml:"std_dev"`
}

// Valid reports whether the stats were computed from at least one sample.
func (s Stats) Valid() bool {
	return s.Samples > 0
}

// Compute summarizes values.
//
// Description:
//
//	Makes one pass for min, max and sum and a second pass for the sum of
//	squared deviations from the mean. Values are not reordered or copied.
//
// Inputs:
//   - values: Samples to summarize. Must not be empty.
//
// Outputs:
//   - Stats: Summary with all fields populated.
//   - error: ErrNoSamples if values is empty.
//
// Thread Safety: This function is stateless and safe for concurrent use.
//
// Example:
//
//	s, err := stats.Compute([]float64{1, 2, 3})
//	// s.Avg == 2, s.StdDev == 1
func Compute(values []float64) (Stats, error) {
	n := len(values)
	if n == 0 {
		return Stats{}, ErrNoSamples
	}

	s := Stats{
		Samples: n,
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
	}
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		s.Sum += v
	}
	s.Avg = s.Sum / float64(n)

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - s.Avg
		sumSquaredDiff += diff * diff
	}
	s.StdDev = math.Sqrt(sumSquaredDiff / float64(n-1))

	return s, nil
}
