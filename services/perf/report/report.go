// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders benchmark results for terminals and machines.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/perfbench/services/perf/history"
	"github.com/AleutianAI/perfbench/services/perf/stats"
	"github.com/AleutianAI/perfbench/services/perf/suite"
)

// Options controls text rendering.
type Options struct {
	// Color enables lipgloss colors. See ColorEnabled.
	Color bool
}

// Entry pairs a display name with a result.
type Entry struct {
	Name   string
	Result *history.Result
}

// ColorEnabled reports whether fd is an interactive terminal.
func ColorEnabled(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Render writes one table per entry.
//
// Description:
//
//	Each table has a row for execution time (ms), operations per second
//	and used memory (MB), with samples, min, max, avg, stddev and sum
//	columns. The error count follows the table, and the first error
//	message when there is one.
//
// Inputs:
//   - w: Destination.
//   - entries: Results in display order. Nil results are skipped.
//   - opts: Rendering options.
//
// Outputs:
//   - error: The first write error.
func Render(w io.Writer, entries []Entry, opts Options) error {
	st := newStyles(opts.Color)
	written := false
	for _, e := range entries {
		if e.Result == nil {
			continue
		}
		if written {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := renderOne(w, st, e); err != nil {
			return err
		}
		written = true
	}
	return nil
}

func renderOne(w io.Writer, st styles, e Entry) error {
	res := e.Result
	title := st.Title.Render(e.Name) + " " + st.Muted.Render("("+res.Reference+")")

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header
			}
			return st.Cell
		}).
		Headers("metric", "samples", "min", "max", "avg", "stddev", "sum").
		Row(statsRow("time (ms)", res.ExecutionTime)...).
		Row(statsRow("ops/s", res.OperationsPerSecond)...).
		Row(statsRow("memory (MB)", res.UsedMemory)...)

	errLine := st.Muted.Render("errors: 0")
	if n := len(res.Errors()); n > 0 {
		errLine = st.Error.Render(fmt.Sprintf("errors: %d (first: %v)", n, res.Errors()[0]))
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n", title, t.String(), errLine)
	return err
}

func statsRow(label string, s stats.Stats) []string {
	return []string{
		label,
		strconv.Itoa(s.Samples),
		formatFloat(s.Min),
		formatFloat(s.Max),
		formatFloat(s.Avg),
		formatFloat(s.StdDev),
		formatFloat(s.Sum),
	}
}

// formatFloat prints six decimals, NaN and +Inf verbatim.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// RenderComparison writes both results followed by the verdict line.
func RenderComparison(w io.Writer, c *suite.Comparison, opts Options) error {
	if c == nil {
		return nil
	}
	if err := Render(w, []Entry{{Name: c.NameA, Result: c.A}, {Name: c.NameB, Result: c.B}}, opts); err != nil {
		return err
	}

	st := newStyles(opts.Color)
	var verdict string
	if c.Speedup == 1 {
		verdict = fmt.Sprintf("%s and %s are equally fast on average", c.NameA, c.NameB)
	} else {
		verdict = fmt.Sprintf("%s is %sx faster on average", st.Success.Render(c.Faster), formatSpeedup(c.Speedup))
	}
	_, err := fmt.Fprintf(w, "\n%s\n", verdict)
	return err
}

func formatSpeedup(v float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 2, 64), "0"), ".")
}

// WriteYAML encodes v as a YAML document.
//
// NaN and infinite statistics are written as .nan and .inf.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
