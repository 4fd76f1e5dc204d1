// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNilMeter indicates NewMetrics was called without a meter.
var ErrNilMeter = errors.New("meter must not be nil")

// Metrics holds the instruments recorded by the benchmarking engine.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// TrialsTotal counts measured invocations by mode and outcome.
	TrialsTotal metric.Int64Counter

	// TrialDuration records per-trial execution time in seconds.
	TrialDuration metric.Float64Histogram

	// UserErrorsTotal counts errors returned or raised by measured callables.
	UserErrorsTotal metric.Int64Counter

	// BenchmarksTotal counts benchmark calls by mode and status.
	BenchmarksTotal metric.Int64Counter
}

// NewMetrics creates all instruments on meter.
//
// Description:
//
//	Registers the perfbench instruments with the provided meter. With the
//	global no-op meter every instrument is a no-op, so callers can always
//	record without checking whether telemetry was initialized.
//
// Inputs:
//
//	meter - The OTel meter to register instruments with. Must not be nil.
//
// Outputs:
//
//	*Metrics - The instruments. Never nil on success.
//	error - Non-nil if registration fails.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter("perfbench"))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	m := &Metrics{}
	var err error

	m.TrialsTotal, err = meter.Int64Counter(
		"perf_trials_total",
		metric.WithDescription("Total measured invocations"),
		metric.WithUnit("{trial}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create trials_total: %w", err)
	}

	m.TrialDuration, err = meter.Float64Histogram(
		"perf_trial_duration_seconds",
		metric.WithDescription("Measured invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create trial_duration: %w", err)
	}

	m.UserErrorsTotal, err = meter.Int64Counter(
		"perf_user_errors_total",
		metric.WithDescription("Errors produced by measured callables"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create user_errors_total: %w", err)
	}

	m.BenchmarksTotal, err = meter.Int64Counter(
		"perf_benchmarks_total",
		metric.WithDescription("Benchmark calls by mode and status"),
		metric.WithUnit("{benchmark}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create benchmarks_total: %w", err)
	}

	return m, nil
}

// RecordTrial records one settled trial.
//
// Inputs:
//
//	ctx - Context for the measurement.
//	mode - "sync" or "async".
//	executionTimeMs - The trial's execution time in milliseconds.
//	failed - Whether the callable produced an error.
func (m *Metrics) RecordTrial(ctx context.Context, mode string, executionTimeMs float64, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	m.TrialsTotal.Add(ctx, 1, attrs)
	m.TrialDuration.Record(ctx, executionTimeMs/1000, metric.WithAttributes(attribute.String("mode", mode)))
	if failed {
		m.UserErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

// RecordBenchmark records the end of a benchmark call.
func (m *Metrics) RecordBenchmark(ctx context.Context, mode string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BenchmarksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	))
}
