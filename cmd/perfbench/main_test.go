// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/perfbench/services/perf/suite"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	a := newApp()
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	if tErr := a.teardown(); err == nil {
		err = tErr
	}
	return out.String(), err
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Run.MaxIterations)
	assert.Equal(t, time.Second, cfg.Run.MaxDuration)
	assert.Equal(t, 1000, cfg.Size)
	assert.Empty(t, cfg.Archive.Dir)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfbench.yaml")
	data := `
run:
  max_iterations: 3
  max_duration: 250ms
size: 10
format: yaml
log:
  level: debug
telemetry:
  trace_exporter: stdout
archive:
  dir: /tmp/perfbench
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Run.MaxIterations)
	assert.Equal(t, 250*time.Millisecond, cfg.Run.MaxDuration)
	assert.Equal(t, 10, cfg.Size)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
	assert.Equal(t, "perfbench", cfg.Telemetry.ServiceName)
	assert.Equal(t, "/tmp/perfbench", cfg.Archive.Dir)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run: [unterminated"), 0600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Format = "json" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"iterations", func(c *Config) { c.Run.MaxIterations = -1 }},
		{"duration", func(c *Config) { c.Run.MaxDuration = -time.Second }},
		{"size", func(c *Config) { c.Size = 0 }},
		{"trace exporter", func(c *Config) { c.Telemetry.TraceExporter = "zipkin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCLI_List(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	for _, name := range suite.Builtin().List() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "async")
}

func TestCLI_Run(t *testing.T) {
	out, err := execute(t, "run", "map-loop", "--iterations", "2", "--size", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "map-loop")
	assert.Contains(t, out, "time (ms)")
	assert.Contains(t, out, "errors: 0")
}

func TestCLI_RunArchiveAndHistory(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "run", "fail-always", "--iterations", "2", "--format", "yaml", "--archive", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "label: fail-always")
	assert.Contains(t, out, "samples: 2")
	assert.Contains(t, out, "strategy always fails")

	out, err = execute(t, "history", "fail-always", "--archive", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "samples=2")
	assert.Contains(t, lines[0], "errors=2")

	out, err = execute(t, "history", "--archive", dir)
	require.NoError(t, err)
	assert.Equal(t, "fail-always", strings.TrimSpace(out))
}

func TestCLI_Compare(t *testing.T) {
	out, err := execute(t, "compare", "concat-plus", "concat-builder", "--iterations", "2", "--size", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "concat-plus")
	assert.Contains(t, out, "concat-builder")
	assert.Contains(t, out, "on average")
}

func TestCLI_Errors(t *testing.T) {
	_, err := execute(t, "run", "missing")
	assert.ErrorIs(t, err, suite.ErrNotFound)

	_, err = execute(t, "history", "x")
	assert.Error(t, err)

	_, err = execute(t, "run", "map-loop", "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "run")
	assert.Error(t, err)
}
