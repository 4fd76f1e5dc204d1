// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/perfbench/services/perf/history"
	"github.com/AleutianAI/perfbench/services/perf/stats"
	"github.com/AleutianAI/perfbench/services/perf/suite"
)

func mustStats(t *testing.T, values ...float64) stats.Stats {
	t.Helper()
	s, err := stats.Compute(values)
	require.NoError(t, err)
	return s
}

func result(t *testing.T, ref string, times ...float64) *history.Result {
	t.Helper()
	ops := make([]float64, len(times))
	mem := make([]float64, len(times))
	for i, v := range times {
		ops[i] = 1000 / v
	}
	return history.NewResult(ref, mustStats(t, times...), mustStats(t, ops...), mustStats(t, mem...))
}

func TestRender_Plain(t *testing.T) {
	res := result(t, "ref-1", 2, 2, 2)
	res.AddErrors(errors.New("fail"), errors.New("fail"))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []Entry{{Name: "map-loop", Result: res}}, Options{}))

	out := buf.String()
	assert.Contains(t, out, "map-loop")
	assert.Contains(t, out, "ref-1")
	assert.Contains(t, out, "time (ms)")
	assert.Contains(t, out, "ops/s")
	assert.Contains(t, out, "memory (MB)")
	assert.Contains(t, out, "2.000000")
	assert.Contains(t, out, "500.000000")
	assert.Contains(t, out, "errors: 2 (first: fail)")
	assert.NotContains(t, out, "\x1b[")
}

func TestRender_SingleSampleNaN(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []Entry{{Name: "once", Result: result(t, "r", 4)}}, Options{}))
	assert.Contains(t, buf.String(), "NaN")
	assert.Contains(t, buf.String(), "errors: 0")
}

func TestRender_SkipsNil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []Entry{{Name: "nil"}, {Name: "x", Result: result(t, "r", 1, 2)}}, Options{}))
	assert.NotContains(t, buf.String(), "nil")
	assert.True(t, strings.HasPrefix(buf.String(), "x (r)"), "output starts with %q", buf.String())
}

func TestRenderComparison(t *testing.T) {
	c := &suite.Comparison{
		NameA:   "slow",
		NameB:   "fast",
		A:       result(t, "a", 4, 4),
		B:       result(t, "b", 1, 1),
		Faster:  "fast",
		Speedup: 4,
	}

	var buf bytes.Buffer
	require.NoError(t, RenderComparison(&buf, c, Options{}))
	out := buf.String()
	assert.Contains(t, out, "slow")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "fast is 4x faster on average"), out)

	c.Speedup = 1
	buf.Reset()
	require.NoError(t, RenderComparison(&buf, c, Options{}))
	assert.Contains(t, buf.String(), "slow and fast are equally fast on average")

	require.NoError(t, RenderComparison(&buf, nil, Options{}))
}

func TestFormatSpeedup(t *testing.T) {
	tests := map[float64]string{
		4:           "4",
		12.5:        "12.5",
		10:          "10",
		1.234:       "1.23",
		math.Inf(1): "+Inf",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatSpeedup(in), "formatSpeedup(%v)", in)
	}
}

func TestWriteYAML(t *testing.T) {
	doc := struct {
		Name  string      `yaml:"name"`
		Stats stats.Stats `yaml:"stats"`
		Ops   float64     `yaml:"ops"`
	}{
		Name:  "single",
		Stats: stats.Stats{Samples: 1, Min: 2, Max: 2, Sum: 2, Avg: 2, StdDev: math.NaN()},
		Ops:   math.Inf(1),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, doc))
	out := buf.String()
	assert.Contains(t, out, "name: single")
	assert.Contains(t, out, ".nan")
	assert.Contains(t, out, ".inf")
}

func TestColorEnabled_File(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, ColorEnabled(f.Fd()))
}
