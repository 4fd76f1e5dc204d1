// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history keeps the trials recorded under each reference and turns
// them into Results on demand.
package history

import (
	"sort"
	"sync"

	"github.com/AleutianAI/perfbench/services/perf/sample"
	"github.com/AleutianAI/perfbench/services/perf/stats"
)

// Store maps references to their ordered trial history.
//
// Description:
//
//	Histories are append-only and unbounded; they are discarded only by
//	Reset. Results are recomputed from the stored trials on every query.
//
// Thread Safety: The internal map is guarded, so concurrent calls do not
// corrupt the store. A Results query is not isolated from appends made by a
// concurrent benchmark on the same reference, so such callers must
// serialize externally if they need consistent snapshots.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]*sample.Trial
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string][]*sample.Trial),
	}
}

// Record appends trial to the history of reference, creating it if absent.
func (s *Store) Record(reference string, trial *sample.Trial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[reference] = append(s.entries[reference], trial)
}

// Len returns the number of trials stored under reference.
func (s *Store) Len(reference string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[reference])
}

// References returns every reference with a history, sorted.
func (s *Store) References() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]string, 0, len(s.entries))
	for ref := range s.entries {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Results aggregates the history of reference.
//
// Description:
//
//	Extracts execution time, operations per second and used memory from
//	every stored trial and computes each group independently. A reference
//	without history yields a Result whose groups all report zero samples.
//
// Inputs:
//   - reference: The reference to aggregate.
//
// Outputs:
//   - *Result: A fresh Result with no errors attached. Never nil.
func (s *Store) Results(reference string) *Result {
	s.mu.RLock()
	trials := s.entries[reference]
	executionTimes := make([]float64, 0, len(trials))
	opsPerSecond := make([]float64, 0, len(trials))
	usedMemory := make([]float64, 0, len(trials))
	for _, t := range trials {
		executionTimes = append(executionTimes, t.ExecutionTimeMs())
		opsPerSecond = append(opsPerSecond, t.OperationsPerSecond())
		usedMemory = append(usedMemory, t.UsedMemoryMB())
	}
	s.mu.RUnlock()

	// Compute only fails on empty input, which leaves the zero Stats in place.
	timeStats, _ := stats.Compute(executionTimes)
	opsStats, _ := stats.Compute(opsPerSecond)
	memoryStats, _ := stats.Compute(usedMemory)

	return NewResult(reference, timeStats, opsStats, memoryStats)
}

// Reset discards every reference and its history.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]*sample.Trial)
}
