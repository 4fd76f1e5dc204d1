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
	"errors"
	"fmt"

	"github.com/AleutianAI/perfbench/services/perf/sample"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrEnvironmentUnsupported indicates a missing timer or memory reader.
	ErrEnvironmentUnsupported = sample.ErrEnvironmentUnsupported

	// ErrInvalidArgument indicates a value that cannot be invoked.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAsyncMismatch indicates an asynchronous callable passed to the
	// synchronous entry point.
	ErrAsyncMismatch = errors.New("function is asynchronous, use BenchmarkAsync instead")

	// ErrReferenceNotFound indicates an Instrumented value that is not
	// registered with the engine.
	ErrReferenceNotFound = errors.New("function reference not found")
)

// PanicError wraps a value recovered from a panicking callable.
//
// The recovered value is kept verbatim in Value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// abandonedError marks a trial whose deferred value had not settled when
// ctx was cancelled. It never reaches a Result.
type abandonedError struct {
	cause error
}

func (e *abandonedError) Error() string {
	return "trial abandoned: " + e.cause.Error()
}

func (e *abandonedError) Unwrap() error {
	return e.cause
}
