// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
	"github.com/gpuscope-project/gpuscope/lib/history"
)

// HarvestFunc runs one harvest cycle. The dashboard calls it from a
// bubbletea command, off the update loop, once per tick.
type HarvestFunc func(gputelem.Demand) gputelem.HarvestResult

// tickMsg drives the sampling cadence.
type tickMsg time.Time

// harvestMsg delivers one completed harvest cycle to the model.
type harvestMsg struct {
	result gputelem.HarvestResult
}

// Config holds the parameters for creating a dashboard model.
type Config struct {
	// Harvest runs one collection cycle. Required.
	Harvest HarvestFunc

	// Demand names the verticals each cycle requests. Metrics feeds
	// the chart; memory and temperature fill legend columns when
	// present.
	Demand gputelem.Demand

	// Interval is the sampling cadence. Defaults to one second.
	Interval time.Duration

	// WindowSamples is the chart window length. Defaults to 120.
	WindowSamples int

	// ShowLegend shows the per-device legend table on start. The l
	// key toggles it either way.
	ShowLegend bool

	// ProbeName labels the header ("nvidia", "apple", "").
	ProbeName string
}

// Model is the top-level bubbletea model for the dashboard.
type Model struct {
	harvest  HarvestFunc
	demand   gputelem.Demand
	interval time.Duration
	theme    Theme
	keys     KeyMap

	probeName string

	// windows holds each device's percentage series; order and
	// colorIndex pin every device to the color it had when first
	// seen, so lines don't recolor as devices come and go.
	windows    *history.Set
	order      []string
	colorIndex map[string]int

	// latest is the most recent harvest, for the legend columns.
	latest gputelem.HarvestResult

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	paused     bool
	showLegend bool
}

// NewModel creates a dashboard model. Run it with tea.NewProgram and
// tea.WithAltScreen.
func NewModel(cfg Config) Model {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	windowSamples := cfg.WindowSamples
	if windowSamples <= 0 {
		windowSamples = 120
	}

	return Model{
		harvest:    cfg.Harvest,
		demand:     cfg.Demand,
		interval:   interval,
		theme:      DefaultTheme,
		keys:       DefaultKeyMap,
		probeName:  cfg.ProbeName,
		windows:    history.NewSet(windowSamples),
		colorIndex: make(map[string]int),
		showLegend: cfg.ShowLegend,
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return model.scheduleTick()
}

func (model Model) scheduleTick() tea.Cmd {
	return tea.Tick(model.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runHarvest returns a command that executes one harvest cycle and
// delivers the result. The harvest blocks for the duration of its
// native queries, so it runs in the command goroutine rather than the
// update loop.
func (model Model) runHarvest() tea.Cmd {
	harvest := model.harvest
	demand := model.demand
	return func() tea.Msg {
		return harvestMsg{result: harvest(demand)}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.Pause):
			model.paused = !model.paused
		case key.Matches(message, model.keys.ToggleLegend):
			model.showLegend = !model.showLegend
		}
		return model, nil

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		return model, nil

	case tickMsg:
		if model.paused {
			return model, model.scheduleTick()
		}
		return model, tea.Batch(model.runHarvest(), model.scheduleTick())

	case harvestMsg:
		model.applyHarvest(message.result)
		return model, nil
	}

	return model, nil
}

// applyHarvest pushes the cycle's metric readings into the chart
// windows and keeps the whole result for the legend.
func (model *Model) applyHarvest(result gputelem.HarvestResult) {
	for _, reading := range result.Metrics {
		if _, seen := model.colorIndex[reading.Name]; !seen {
			model.colorIndex[reading.Name] = len(model.order)
			model.order = append(model.order, reading.Name)
		}
		model.windows.Observe(reading.Name, reading.Metric.AsPercentage())
	}
	model.latest = result
}

// aggregatePercent is the mean of every device's latest sample, the
// "All" legend value. Zero devices yield zero.
func (model Model) aggregatePercent() float32 {
	if len(model.order) == 0 {
		return 0
	}
	var sum float32
	for _, device := range model.order {
		if latest, ok := model.windows.Window(device).Latest(); ok {
			sum += latest
		}
	}
	return sum / float32(len(model.order))
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, model.renderHeader())

	legend := ""
	legendHeight := 0
	if model.showLegend {
		legend = model.renderLegend()
		legendHeight = lipgloss.Height(legend)
	}

	// Header, separator, and help each take one line.
	chartHeight := model.height - 3 - legendHeight
	if chartHeight < 3 {
		chartHeight = 3
	}
	sections = append(sections, model.renderChart(model.width, chartHeight))

	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))
	sections = append(sections, separator)

	if legend != "" {
		sections = append(sections, legend)
	}
	sections = append(sections, model.renderHelp())

	return strings.Join(sections, "\n")
}

func (model Model) renderHeader() string {
	title := "GPUScope"
	if model.probeName != "" {
		title += "  ·  " + model.probeName
	}
	header := lipgloss.NewStyle().
		Foreground(model.theme.HeaderForeground).
		Bold(true).
		Render(title)

	if model.paused {
		header += "  " + lipgloss.NewStyle().
			Foreground(model.theme.PausedNotice).
			Render("[paused]")
	}
	return header
}

func (model Model) renderChart(width, height int) string {
	canvas := newChartCanvas(width, height)
	for _, device := range model.order {
		canvas.plotSeries(model.windows.Window(device).Values(), model.colorIndex[device])
	}

	lines := canvas.render(model.theme)
	return strings.Join(lines, "\n")
}

// legend column widths. The device column absorbs whatever name
// length the vendor reports, truncated to keep rows aligned.
const (
	legendNameWidth = 28
	legendColWidth  = 12
)

func (model Model) renderLegend() string {
	headerStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	var rows []string
	rows = append(rows, headerStyle.Render(
		padColumn("DEVICE", legendNameWidth)+
			padColumn("USAGE", legendColWidth)+
			padColumn("MEMORY", legendColWidth+8)+
			padColumn("TEMP", legendColWidth)))

	allStyle := lipgloss.NewStyle().Foreground(model.theme.AggregateColor).Bold(true)
	rows = append(rows, allStyle.Render(
		padColumn("All", legendNameWidth)+
			padColumn(fmt.Sprintf("%.1f%%", model.aggregatePercent()), legendColWidth)+
			padColumn(model.totalMemoryColumn(), legendColWidth+8)+
			padColumn("", legendColWidth)))

	for _, device := range model.order {
		style := lipgloss.NewStyle().Foreground(model.theme.SeriesColor(model.colorIndex[device]))

		usage := ""
		if latest, ok := model.windows.Window(device).Latest(); ok {
			usage = fmt.Sprintf("%.1f%%", latest)
		}

		rows = append(rows, style.Render(
			padColumn(device, legendNameWidth)+
				padColumn(usage, legendColWidth)+
				padColumn(model.memoryColumn(device), legendColWidth+8)+
				padColumn(model.temperatureColumn(device), legendColWidth)))
	}

	return strings.Join(rows, "\n")
}

// memoryColumn formats "used / total" for the device, or blank when
// the memory vertical is absent or lacks this device.
func (model Model) memoryColumn(device string) string {
	for _, memory := range model.latest.Memory {
		if memory.Name == device {
			return formatBytes(memory.UsedBytes) + " / " + formatBytes(memory.TotalBytes)
		}
	}
	return ""
}

// totalMemoryColumn sums every device's memory for the "All" row.
func (model Model) totalMemoryColumn() string {
	var used, total uint64
	for _, memory := range model.latest.Memory {
		used += memory.UsedBytes
		total += memory.TotalBytes
	}
	if total == 0 {
		return ""
	}
	return formatBytes(used) + " / " + formatBytes(total)
}

// temperatureColumn formats the device temperature, "n/a" for a
// present-but-unknown sensor, blank when the vertical is absent.
func (model Model) temperatureColumn(device string) string {
	for _, temperature := range model.latest.Temperatures {
		if temperature.Name == device {
			if !temperature.Known {
				return "n/a"
			}
			return fmt.Sprintf("%.0f°C", temperature.Celsius)
		}
	}
	return ""
}

func (model Model) renderHelp() string {
	return lipgloss.NewStyle().
		Foreground(model.theme.HelpText).
		Render("space pause · l legend · q quit")
}

// padColumn left-aligns text in a fixed-width column, truncating
// overlong values.
func padColumn(text string, width int) string {
	runes := []rune(text)
	if len(runes) > width-2 {
		runes = runes[:width-2]
	}
	return fmt.Sprintf("%-*s", width, string(runes))
}

func formatBytes(bytes uint64) string {
	const (
		gib = 1 << 30
		mib = 1 << 20
	)
	switch {
	case bytes >= gib:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/gib)
	case bytes >= mib:
		return fmt.Sprintf("%.0f MiB", float64(bytes)/mib)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
