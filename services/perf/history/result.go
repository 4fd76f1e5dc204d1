// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"github.com/AleutianAI/perfbench/services/perf/stats"
)

// Result is a snapshot of the statistics recorded under one reference.
//
// Description:
//
//	The three statistics groups are always computed over the same trials:
//	every trial, failed or not, contributes one value to each group.
//	OperationsPerSecond is aggregated from the per-trial throughput values
//	and is not the inverse of ExecutionTime.Avg.
//
//	Errors holds the user errors of the benchmark call that produced the
//	Result, in the order they occurred. Errors from earlier calls on the
//	same reference are not carried over.
//
// Thread Safety: Not safe for concurrent mutation. Treat as read-only once
// returned to a caller.
type Result struct {
	// Reference identifies the history the statistics were computed from.
	Reference string

	// ExecutionTime aggregates per-trial execution time in milliseconds.
	ExecutionTime stats.Stats

	// OperationsPerSecond aggregates per-trial throughput.
	OperationsPerSecond stats.Stats

	// UsedMemory aggregates per-trial heap delta in megabytes.
	UsedMemory stats.Stats

	errors []error
}

// NewResult assembles a Result from three statistics groups.
func NewResult(reference string, executionTime, opsPerSecond, usedMemory stats.Stats) *Result {
	return &Result{
		Reference:           reference,
		ExecutionTime:       executionTime,
		OperationsPerSecond: opsPerSecond,
		UsedMemory:          usedMemory,
	}
}

// AddErrors appends errors in order. Duplicates are kept.
func (r *Result) AddErrors(errs ...error) {
	r.errors = append(r.errors, errs...)
}

// Errors returns the collected user errors.
func (r *Result) Errors() []error {
	return r.errors
}

// ExecutionTimeStats returns execution time statistics (ms).
func (r *Result) ExecutionTimeStats() stats.Stats {
	return r.ExecutionTime
}

// OperationsPerSecondStats returns throughput statistics.
func (r *Result) OperationsPerSecondStats() stats.Stats {
	return r.OperationsPerSecond
}

// UsedMemoryStats returns memory statistics (MB).
func (r *Result) UsedMemoryStats() stats.Stats {
	return r.UsedMemory
}

// Samples returns the number of trials the statistics cover.
func (r *Result) Samples() int {
	return r.ExecutionTime.Samples
}
