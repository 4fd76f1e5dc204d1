// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sample captures the raw measurements of a single trial.
//
// A Trial records a clock reading and a heap reading when an invocation
// starts and again when it settles. The derived metrics (execution time,
// operations per second and used memory) are computed on demand and each is
// rounded to six decimal places after discarding the sign.
package sample

import (
	"errors"
	"math"
	"runtime/metrics"
	"time"
)

// ErrEnvironmentUnsupported indicates that a timer or memory reader is missing.
var ErrEnvironmentUnsupported = errors.New("environment unsupported")

// heapObjectsMetric is the runtime metric read for live heap bytes.
const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// Clock returns a monotonic, high-resolution reading.
type Clock interface {
	Now() time.Duration
}

// MemoryReader returns the current heap usage in bytes.
type MemoryReader interface {
	HeapUsed() uint64
}

// -----------------------------------------------------------------------------
// Probe
// -----------------------------------------------------------------------------

// Probe bundles the two readers a Trial depends on.
//
// Thread Safety: The default readers are safe for concurrent use. Custom
// readers must document their own guarantees.
type Probe struct {
	Clock  Clock
	Memory MemoryReader
}

// DefaultProbe returns a probe backed by the Go monotonic clock and the
// runtime/metrics heap reading.
//
// Outputs:
//   - Probe: Ready-to-use probe. Call Check before relying on it.
func DefaultProbe() Probe {
	return Probe{
		Clock:  NewMonotonicClock(),
		Memory: RuntimeMemory{},
	}
}

// Check verifies that both readers are present and usable.
//
// Description:
//
//	Check is meant to run once, when the owner of the probe is
//	constructed, so that a missing reader fails immediately instead of on
//	the first trial.
//
// Outputs:
//   - error: ErrEnvironmentUnsupported (wrapped) when a reader is missing.
func (p Probe) Check() error {
	if p.Clock == nil {
		return errors.Join(ErrEnvironmentUnsupported, errors.New("high-resolution timer is not available"))
	}
	if p.Memory == nil {
		return errors.Join(ErrEnvironmentUnsupported, errors.New("memory usage reader is not available"))
	}
	if checker, ok := p.Memory.(interface{ Supported() bool }); ok && !checker.Supported() {
		return errors.Join(ErrEnvironmentUnsupported, errors.New("memory usage reader is not supported by this runtime"))
	}
	return nil
}

// monotonicClock reads elapsed time since its creation.
type monotonicClock struct {
	base time.Time
}

// NewMonotonicClock returns a Clock anchored at the current instant.
func NewMonotonicClock() Clock {
	return monotonicClock{base: time.Now()}
}

func (c monotonicClock) Now() time.Duration {
	return time.Since(c.base)
}

// RuntimeMemory reads live heap object bytes from runtime/metrics.
//
// Unlike runtime.ReadMemStats it does not stop the world, which keeps the
// reading itself out of the measured interval as much as possible.
type RuntimeMemory struct{}

// HeapUsed returns the bytes occupied by live and unswept heap objects.
func (RuntimeMemory) HeapUsed() uint64 {
	s := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(s)
	if s[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return s[0].Value.Uint64()
}

// Supported reports whether the runtime exposes the heap metric.
func (RuntimeMemory) Supported() bool {
	for _, d := range metrics.All() {
		if d.Name == heapObjectsMetric {
			return d.Kind == metrics.KindUint64
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Trial
// -----------------------------------------------------------------------------

// Trial holds the start and end readings of one measured invocation.
//
// Thread Safety: Not safe for concurrent mutation. A Trial is written by the
// invocation that owns it and is read-only once Finish has been called.
type Trial struct {
	probe Probe

	timeStart   time.Duration
	timeEnd     time.Duration
	memoryStart uint64
	memoryEnd   uint64
}

// Start captures the current time and heap usage.
//
// Inputs:
//   - probe: Readers to use. Both must be non-nil (see Probe.Check).
//
// Outputs:
//   - *Trial: A trial whose end readings are zero until Finish is called.
func Start(probe Probe) *Trial {
	t := &Trial{probe: probe}
	t.memoryStart = probe.Memory.HeapUsed()
	t.timeStart = probe.Clock.Now()
	return t
}

// Finish captures the end time and heap usage.
func (t *Trial) Finish() {
	t.timeEnd = t.probe.Clock.Now()
	t.memoryEnd = t.probe.Memory.HeapUsed()
}

// ExecutionTimeMs returns the elapsed time in milliseconds, rounded.
func (t *Trial) ExecutionTimeMs() float64 {
	elapsed := float64(t.timeEnd-t.timeStart) / float64(time.Millisecond)
	return RoundAbs6(elapsed)
}

// OperationsPerSecond returns 1000 divided by the rounded execution time.
//
// A zero execution time yields +Inf.
func (t *Trial) OperationsPerSecond() float64 {
	return RoundAbs6(1000 / t.ExecutionTimeMs())
}

// UsedMemoryMB returns the heap delta in megabytes (1e6 bytes).
//
// The delta can be negative when a collection ran during the trial; the
// sign is discarded like every other derived metric.
func (t *Trial) UsedMemoryMB() float64 {
	delta := float64(t.memoryEnd) - float64(t.memoryStart)
	return RoundAbs6(delta) / 1e6
}

// RoundAbs6 discards the sign of v and rounds it to six decimal places.
func RoundAbs6(v float64) float64 {
	return math.Round(math.Abs(v)*1e6) / 1e6
}
