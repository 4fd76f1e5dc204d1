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
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/perfbench/services/perf/sample"
	"github.com/AleutianAI/perfbench/services/perf/telemetry"
)

const (
	// DefaultMaxIterations caps the trials of one benchmark call.
	DefaultMaxIterations = 10

	// DefaultMaxDuration caps the wall time of one benchmark call.
	DefaultMaxDuration = time.Second

	tracerName = "perfbench.engine"
)

// -----------------------------------------------------------------------------
// Engine options
// -----------------------------------------------------------------------------

// Option configures an Engine.
type Option func(*Engine)

// WithProbe replaces the clock and memory reader used for trials.
func WithProbe(p sample.Probe) Option {
	return func(e *Engine) {
		e.probe = p
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics enables per-trial metric recording.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracerName overrides the tracer used for benchmark spans.
func WithTracerName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.tracerName = name
		}
	}
}

// -----------------------------------------------------------------------------
// Run options
// -----------------------------------------------------------------------------

// RunConfig bounds a single benchmark call.
//
// The loop always runs one trial, then continues while fewer than
// MaxIterations trials ran and less than MaxDuration elapsed. Zero bounds
// therefore yield exactly one trial.
type RunConfig struct {
	// MaxIterations is the trial cap. Default: 10.
	MaxIterations int `yaml:"max_iterations" validate:"gte=0"`

	// MaxDuration is the time budget checked after each trial. Default: 1s.
	MaxDuration time.Duration `yaml:"max_duration" validate:"gte=0"`
}

// DefaultRunConfig returns the bounds used when no RunOption is given.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxIterations: DefaultMaxIterations,
		MaxDuration:   DefaultMaxDuration,
	}
}

var runConfigValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags.
//
// Outputs:
//   - error: ErrInvalidArgument wrapping the validator's report when a
//     bound is negative.
func (c RunConfig) Validate() error {
	if err := runConfigValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: run config: %v", ErrInvalidArgument, err)
	}
	return nil
}

// RunOption adjusts a RunConfig.
type RunOption func(*RunConfig)

// WithMaxIterations sets the trial cap. Zero means a single trial; a
// negative value fails validation.
func WithMaxIterations(n int) RunOption {
	return func(c *RunConfig) {
		c.MaxIterations = n
	}
}

// WithMaxDuration sets the time budget. Zero means a single trial; a
// negative value fails validation.
func WithMaxDuration(d time.Duration) RunOption {
	return func(c *RunConfig) {
		c.MaxDuration = d
	}
}

// WithRunConfig replaces the whole RunConfig.
func WithRunConfig(cfg RunConfig) RunOption {
	return func(c *RunConfig) {
		*c = cfg
	}
}
