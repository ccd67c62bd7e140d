// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the dashboard. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// SeriesColors color the chart lines and their legend rows, one
	// per device in enumeration order, wrapping when there are more
	// devices than colors.
	SeriesColors []lipgloss.Color

	// AggregateColor is the "All" legend row.
	AggregateColor lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// PausedNotice marks the header while sampling is paused.
	PausedNotice lipgloss.Color
}

// SeriesColor returns the color for the series at the given index.
func (theme Theme) SeriesColor(index int) lipgloss.Color {
	if len(theme.SeriesColors) == 0 {
		return theme.NormalText
	}
	return theme.SeriesColors[index%len(theme.SeriesColors)]
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SeriesColors: []lipgloss.Color{
		lipgloss.Color("114"), // green
		lipgloss.Color("75"),  // blue
		lipgloss.Color("220"), // amber
		lipgloss.Color("141"), // light purple
		lipgloss.Color("208"), // orange
		lipgloss.Color("81"),  // cyan
	},
	AggregateColor: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	PausedNotice: lipgloss.Color("220"),
}
