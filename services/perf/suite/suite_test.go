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
	"math"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/perfbench/services/perf/engine"
	"github.com/AleutianAI/perfbench/services/perf/sample"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *stepClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

type zeroMemory struct{}

func (zeroMemory) HeapUsed() uint64 { return 0 }

func newEngine(t *testing.T) (*engine.Engine, *stepClock) {
	t.Helper()
	clock := &stepClock{}
	eng, err := engine.New(engine.WithProbe(sample.Probe{Clock: clock, Memory: zeroMemory{}}))
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	return eng, clock
}

func sleeper(name string, clock *stepClock, d time.Duration) *Strategy {
	return &Strategy{
		Name: name,
		Build: func(int) (any, error) {
			return func() { clock.Advance(d) }, nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&Strategy{Name: "a", Build: func(int) (any, error) { return func() {}, nil }}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if r.Count() != 1 {
			t.Errorf("Count = %d, want 1", r.Count())
		}
	})

	t.Run("nil or incomplete strategy", func(t *testing.T) {
		r := NewRegistry()
		for _, s := range []*Strategy{nil, {Name: "x"}, {Build: func(int) (any, error) { return nil, nil }}} {
			if err := r.Register(s); !errors.Is(err, ErrNilStrategy) {
				t.Errorf("Register(%v) error = %v, want ErrNilStrategy", s, err)
			}
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		r := NewRegistry()
		s := &Strategy{Name: "dup", Build: func(int) (any, error) { return func() {}, nil }}
		if err := r.Register(s); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}
		if err := r.Register(s); !errors.Is(err, ErrAlreadyRegistered) {
			t.Errorf("second Register() error = %v, want ErrAlreadyRegistered", err)
		}
	})
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegister(nil) did not panic")
		}
	}()
	NewRegistry().MustRegister(nil)
}

func TestRegistry_Get(t *testing.T) {
	r := Builtin()
	s, err := r.Get("map-loop")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.Name != "map-loop" {
		t.Errorf("Name = %q, want map-loop", s.Name)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestBuiltin_List(t *testing.T) {
	want := []string{"concat-builder", "concat-plus", "fail-always", "map-loop", "map-spread", "sleep-async"}
	got := Builtin().List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuiltin_Run(t *testing.T) {
	r := Builtin()
	for _, name := range r.List() {
		t.Run(name, func(t *testing.T) {
			eng, err := engine.New()
			if err != nil {
				t.Fatalf("engine.New() error = %v", err)
			}
			s, err := r.Get(name)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			res, err := Run(context.Background(), eng, s, 20, engine.WithMaxIterations(3))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Samples() < 1 || res.Samples() > 3 {
				t.Errorf("Samples = %d, want 1..3", res.Samples())
			}

			wantErrors := 0
			if name == "fail-always" {
				wantErrors = res.Samples()
			}
			if len(res.Errors()) != wantErrors {
				t.Errorf("len(Errors) = %d, want %d", len(res.Errors()), wantErrors)
			}
			for _, e := range res.Errors() {
				if !errors.Is(e, ErrAlwaysFails) {
					t.Errorf("error = %v, want ErrAlwaysFails", e)
				}
			}
		})
	}
}

func TestBuiltin_MapStrategiesAgree(t *testing.T) {
	r := Builtin()
	loop, _ := r.Get("map-loop")
	spread, _ := r.Get("map-spread")

	loopFn, err := loop.Build(30)
	if err != nil {
		t.Fatalf("map-loop Build() error = %v", err)
	}
	spreadFn, err := spread.Build(30)
	if err != nil {
		t.Fatalf("map-spread Build() error = %v", err)
	}
	outLoop := loopFn.(func() any)().([]float64)
	outSpread := spreadFn.(func() any)().([]float64)
	if len(outLoop) != 30 || len(outSpread) != 30 {
		t.Fatalf("lengths = %d, %d, want 30", len(outLoop), len(outSpread))
	}
	for i, v := range outLoop {
		if v < 0 || v >= 2 {
			t.Errorf("outLoop[%d] = %v, want [0, 2)", i, v)
		}
	}
}

func TestCompare(t *testing.T) {
	eng, clock := newEngine(t)
	fast := sleeper("fast", clock, time.Millisecond)
	slow := sleeper("slow", clock, 4*time.Millisecond)

	c, err := Compare(context.Background(), eng, slow, fast, 10, engine.WithMaxIterations(5))
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if c.Faster != "fast" {
		t.Errorf("Faster = %q, want fast", c.Faster)
	}
	if math.Abs(c.Speedup-4) > 1e-9 {
		t.Errorf("Speedup = %v, want 4", c.Speedup)
	}
	if c.A.Samples() != 5 || c.B.Samples() != 5 {
		t.Errorf("Samples = %d, %d, want 5, 5", c.A.Samples(), c.B.Samples())
	}
	if c.A.Reference == c.B.Reference {
		t.Error("compared strategies share a reference")
	}
}

func TestCompare_Errors(t *testing.T) {
	eng, _ := newEngine(t)
	bad := &Strategy{Name: "bad", Build: func(int) (any, error) { return 42, nil }}
	ok := &Strategy{Name: "ok", Build: func(int) (any, error) { return func() {}, nil }}

	if _, err := Compare(context.Background(), eng, bad, ok, 1); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("Compare(bad) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := Compare(context.Background(), eng, ok, nil, 1); !errors.Is(err, ErrNilStrategy) {
		t.Errorf("Compare(nil) error = %v, want ErrNilStrategy", err)
	}
}

func TestRun_BuildError(t *testing.T) {
	eng, _ := newEngine(t)
	s, err := Builtin().Get("map-loop")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := Run(context.Background(), eng, s, -1); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("Run(size -1) error = %v, want ErrInvalidArgument", err)
	}
	if eng.Registered() != 0 {
		t.Errorf("Registered = %d, want 0", eng.Registered())
	}
}

func TestSpeedup(t *testing.T) {
	tests := []struct {
		name       string
		fast, slow float64
		want       float64
	}{
		{"equal", 2, 2, 1},
		{"both zero", 0, 0, 1},
		{"ratio", 0.5, 2, 4},
		{"zero fast", 0, 3, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := speedup(tt.fast, tt.slow); got != tt.want {
				t.Errorf("speedup(%v, %v) = %v, want %v", tt.fast, tt.slow, got, tt.want)
			}
		})
	}
}
