// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette shared by every rendered report.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // titles, faster strategy
	ColorTealPrimary = lipgloss.Color("#20B9B4") // headers
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text
	ColorWarning     = lipgloss.Color("#F4D03F")
	ColorError       = lipgloss.Color("#E74C3C")
)

// styles is the set applied when color is enabled. The zero value renders
// plain text.
type styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(color bool) styles {
	cell := lipgloss.NewStyle().Padding(0, 1)
	if !color {
		return styles{
			Title:   lipgloss.NewStyle(),
			Header:  cell,
			Cell:    cell,
			Border:  lipgloss.NewStyle(),
			Muted:   lipgloss.NewStyle(),
			Success: lipgloss.NewStyle(),
			Error:   lipgloss.NewStyle(),
		}
	}
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
		Header:  cell.Bold(true).Foreground(ColorTealPrimary),
		Cell:    cell,
		Border:  lipgloss.NewStyle().Foreground(ColorTealDeep),
		Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
		Success: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ColorError),
	}
}
