// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package suite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/perfbench/services/perf/engine"
	"github.com/AleutianAI/perfbench/services/perf/fixtures"
)

// ErrAlwaysFails is returned by every call of the fail-always strategy.
var ErrAlwaysFails = errors.New("strategy always fails")

// Builtin returns a registry preloaded with the bundled strategies.
//
// Description:
//
//	map-loop and map-spread double a slice of random numbers, the first by
//	appending in place and the second by copying the accumulator on every
//	step. concat-plus and concat-builder join random strings. sleep-async
//	waits size microseconds on a goroutine. fail-always returns
//	ErrAlwaysFails.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(&Strategy{
		Name:        "map-loop",
		Description: "double each number, appending to one slice",
		Build: func(size int) (any, error) {
			in, err := fixtures.RandomNumbers(size)
			if err != nil {
				return nil, err
			}
			return func() any {
				out := make([]float64, 0, len(in))
				for _, v := range in {
					out = append(out, v*2)
				}
				return out
			}, nil
		},
	})
	r.MustRegister(&Strategy{
		Name:        "map-spread",
		Description: "double each number, copying the accumulator each step",
		Build: func(size int) (any, error) {
			in, err := fixtures.RandomNumbers(size)
			if err != nil {
				return nil, err
			}
			return func() any {
				var acc []float64
				for _, v := range in {
					next := make([]float64, len(acc)+1)
					copy(next, acc)
					next[len(acc)] = v * 2
					acc = next
				}
				return acc
			}, nil
		},
	})
	r.MustRegister(&Strategy{
		Name:        "concat-plus",
		Description: "join random strings with +",
		Build: func(size int) (any, error) {
			in, err := fixtures.RandomStrings(size)
			if err != nil {
				return nil, err
			}
			return func() any {
				s := ""
				for _, v := range in {
					s += v
				}
				return s
			}, nil
		},
	})
	r.MustRegister(&Strategy{
		Name:        "concat-builder",
		Description: "join random strings with strings.Builder",
		Build: func(size int) (any, error) {
			in, err := fixtures.RandomStrings(size)
			if err != nil {
				return nil, err
			}
			return func() any {
				var b strings.Builder
				for _, v := range in {
					b.WriteString(v)
				}
				return b.String()
			}, nil
		},
	})
	r.MustRegister(&Strategy{
		Name:        "sleep-async",
		Description: "wait size microseconds on a goroutine",
		Async:       true,
		Build: func(size int) (any, error) {
			if size < 0 {
				return nil, fmt.Errorf("%w: negative size %d", engine.ErrInvalidArgument, size)
			}
			d := time.Duration(size) * time.Microsecond
			return func(ctx context.Context) *engine.Future {
				return engine.Go(func() error {
					timer := time.NewTimer(d)
					defer timer.Stop()
					select {
					case <-timer.C:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				})
			}, nil
		},
	})
	r.MustRegister(&Strategy{
		Name:        "fail-always",
		Description: "return an error on every call",
		Build: func(int) (any, error) {
			return func() error { return ErrAlwaysFails }, nil
		},
	})
	return r
}
