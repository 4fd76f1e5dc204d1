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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/perfbench/pkg/logging"
	"github.com/AleutianAI/perfbench/services/perf/archive"
	"github.com/AleutianAI/perfbench/services/perf/engine"
	"github.com/AleutianAI/perfbench/services/perf/report"
	"github.com/AleutianAI/perfbench/services/perf/suite"
	"github.com/AleutianAI/perfbench/services/perf/telemetry"
)

// app holds flag values and the resources opened for one command.
type app struct {
	configPath  string
	logLevel    string
	jsonLogs    bool
	iterations  int
	maxDuration time.Duration
	size        int
	archiveDir  string
	format      string
	traceExp    string
	metricExp   string
	metricsAddr string
	label       string

	cfg       Config
	registry  *suite.Registry
	logger    *logging.Logger
	telemetry *telemetry.Providers
	closers   []func(context.Context) error
}

func newApp() *app {
	return &app{registry: suite.Builtin()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "perfbench",
		Short:         "Benchmark callables in-process and compare strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&a.jsonLogs, "json-logs", false, "Write logs as JSON")
	pf.IntVar(&a.iterations, "iterations", 0, "Maximum trials per benchmark (default 10)")
	pf.DurationVar(&a.maxDuration, "max-duration", 0, "Time budget per benchmark (default 1s)")
	pf.IntVar(&a.size, "size", 0, "Input size for strategies (default 1000)")
	pf.StringVar(&a.archiveDir, "archive", "", "Directory of the result archive")
	pf.StringVar(&a.format, "format", "", "Output format: text or yaml")
	pf.StringVar(&a.traceExp, "trace-exporter", "", "Trace exporter: otlp, stdout, none")
	pf.StringVar(&a.metricExp, "metric-exporter", "", "Metric exporter: prometheus, stdout, none")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve /metrics on this address while running (prometheus exporter)")

	runCmd := &cobra.Command{
		Use:   "run <strategy>",
		Short: "Benchmark one strategy",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runRun,
	}
	runCmd.Flags().StringVar(&a.label, "label", "", "Archive label (default: strategy name)")

	root.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the available strategies",
			Args:  cobra.NoArgs,
			RunE:  a.runList,
		},
		runCmd,
		&cobra.Command{
			Use:   "compare <a> <b>",
			Short: "Benchmark two strategies and report the faster one",
			Args:  cobra.ExactArgs(2),
			RunE:  a.runCompare,
		},
		&cobra.Command{
			Use:   "history [label]",
			Short: "Show archived snapshots for a label, or all labels when omitted",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.runHistory,
		},
	)
	return root
}

// setup loads configuration, applies flag overrides and opens the logger
// and telemetry providers.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("json-logs") {
		cfg.Log.JSON = a.jsonLogs
	}
	if flags.Changed("iterations") {
		cfg.Run.MaxIterations = a.iterations
	}
	if flags.Changed("max-duration") {
		cfg.Run.MaxDuration = a.maxDuration
	}
	if flags.Changed("size") {
		cfg.Size = a.size
	}
	if flags.Changed("archive") {
		cfg.Archive.Dir = a.archiveDir
	}
	if flags.Changed("format") {
		cfg.Format = a.format
	}
	if flags.Changed("trace-exporter") {
		cfg.Telemetry.TraceExporter = a.traceExp
	}
	if flags.Changed("metric-exporter") {
		cfg.Telemetry.MetricExporter = a.metricExp
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := logging.ParseLevel(cfg.Log.Level)
	a.logger, err = logging.New(logging.Config{
		Level:   level,
		JSON:    cfg.Log.JSON,
		LogDir:  cfg.Log.Dir,
		Service: "perfbench",
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.logger.Close() })

	telCfg := cfg.Telemetry
	telCfg.Writer = cmd.ErrOrStderr()
	a.telemetry, err = telemetry.Init(cmd.Context(), telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, a.telemetry.Shutdown)

	if a.metricsAddr != "" {
		if err := a.serveMetrics(); err != nil {
			return err
		}
	}
	return nil
}

// serveMetrics exposes the prometheus handler until teardown.
func (a *app) serveMetrics() error {
	handler := a.telemetry.MetricsHandler()
	if handler == nil {
		return errors.New("--metrics-addr requires --metric-exporter=prometheus")
	}
	ln, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.metricsAddr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	a.closers = append(a.closers, srv.Shutdown)
	return nil
}

// teardown releases resources in reverse order of acquisition.
func (a *app) teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) newEngine() (*engine.Engine, error) {
	metrics, err := telemetry.NewMetrics(otel.Meter("perfbench"))
	if err != nil {
		return nil, err
	}
	return engine.New(
		engine.WithLogger(a.logger.Slog()),
		engine.WithMetrics(metrics),
	)
}

// openArchive returns nil when no archive directory is configured.
func (a *app) openArchive() (*archive.Archive, func() error, error) {
	if a.cfg.Archive.Dir == "" {
		return nil, func() error { return nil }, nil
	}
	cfg := archive.DefaultConfig(a.cfg.Archive.Dir)
	cfg.Logger = a.logger.Slog().With(slog.String("component", "archive"))
	db, err := archive.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return archive.New(db, a.logger.Slog()), db.Close, nil
}

func renderOptions(w io.Writer) report.Options {
	if f, ok := w.(*os.File); ok {
		return report.Options{Color: report.ColorEnabled(f.Fd())}
	}
	return report.Options{}
}

func (a *app) runList(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	for _, name := range a.registry.List() {
		s, err := a.registry.Get(name)
		if err != nil {
			return err
		}
		mode := "sync"
		if s.Async {
			mode = "async"
		}
		if _, err := fmt.Fprintf(out, "%-16s %-6s %s\n", s.Name, mode, s.Description); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) runRun(cmd *cobra.Command, args []string) error {
	s, err := a.registry.Get(args[0])
	if err != nil {
		return err
	}
	eng, err := a.newEngine()
	if err != nil {
		return err
	}
	arch, closeArchive, err := a.openArchive()
	if err != nil {
		return err
	}
	defer closeArchive()

	res, err := suite.Run(cmd.Context(), eng, s, a.cfg.Size, a.cfg.runOptions()...)
	if err != nil {
		return err
	}

	label := a.label
	if label == "" {
		label = s.Name
	}
	snap := archive.NewSnapshot(label, res, time.Now())
	if arch != nil {
		if snap, err = arch.Save(cmd.Context(), label, res); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if a.cfg.Format == "yaml" {
		return report.WriteYAML(out, snap)
	}
	return report.Render(out, []report.Entry{{Name: s.Name, Result: res}}, renderOptions(out))
}

func (a *app) runCompare(cmd *cobra.Command, args []string) error {
	sa, err := a.registry.Get(args[0])
	if err != nil {
		return err
	}
	sb, err := a.registry.Get(args[1])
	if err != nil {
		return err
	}
	eng, err := a.newEngine()
	if err != nil {
		return err
	}
	arch, closeArchive, err := a.openArchive()
	if err != nil {
		return err
	}
	defer closeArchive()

	c, err := suite.Compare(cmd.Context(), eng, sa, sb, a.cfg.Size, a.cfg.runOptions()...)
	if err != nil {
		return err
	}
	if arch != nil {
		if _, err := arch.Save(cmd.Context(), c.NameA, c.A); err != nil {
			return err
		}
		if _, err := arch.Save(cmd.Context(), c.NameB, c.B); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if a.cfg.Format == "yaml" {
		return report.WriteYAML(out, struct {
			Comparison *suite.Comparison `yaml:"comparison"`
			A          archive.Snapshot  `yaml:"a"`
			B          archive.Snapshot  `yaml:"b"`
		}{c, archive.NewSnapshot(c.NameA, c.A, time.Now()), archive.NewSnapshot(c.NameB, c.B, time.Now())})
	}
	return report.RenderComparison(out, c, renderOptions(out))
}

func (a *app) runHistory(cmd *cobra.Command, args []string) error {
	if a.cfg.Archive.Dir == "" {
		return errors.New("history requires --archive or archive.dir in the config")
	}
	arch, closeArchive, err := a.openArchive()
	if err != nil {
		return err
	}
	defer closeArchive()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		labels, err := arch.Labels(cmd.Context())
		if err != nil {
			return err
		}
		if a.cfg.Format == "yaml" {
			return report.WriteYAML(out, labels)
		}
		for _, label := range labels {
			if _, err := fmt.Fprintln(out, label); err != nil {
				return err
			}
		}
		return nil
	}

	snaps, err := arch.List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if a.cfg.Format == "yaml" {
		return report.WriteYAML(out, snaps)
	}
	for _, s := range snaps {
		if _, err := fmt.Fprintf(out, "%s  samples=%d  avg=%.6fms  ops/s=%.6f  errors=%d\n",
			s.RecordedAt.Format(time.RFC3339), s.Samples, s.ExecutionTime.Avg,
			s.OperationsPerSecond.Avg, len(s.Errors)); err != nil {
			return err
		}
	}
	return nil
}
