// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
)

// countingHarvest records calls and hands back canned results.
type countingHarvest struct {
	calls      int
	lastDemand gputelem.Demand
	result     gputelem.HarvestResult
}

func (h *countingHarvest) run(demand gputelem.Demand) gputelem.HarvestResult {
	h.calls++
	h.lastDemand = demand
	return h.result
}

func testResult() gputelem.HarvestResult {
	return gputelem.HarvestResult{
		Metrics: []gputelem.DeviceReading{
			{Name: "GPU 0", Metric: gputelem.Utilization(30)},
			{Name: "GPU 1", Metric: gputelem.Utilization(50)},
		},
		Memory: []gputelem.MemoryReading{
			{Name: "GPU 0", TotalBytes: 8 << 30, UsedBytes: 2 << 30},
		},
		Temperatures: []gputelem.TemperatureReading{
			{Name: "GPU 0", Celsius: 61, Known: true},
			{Name: "GPU 1", Known: false},
		},
	}
}

func sizedModel(t *testing.T, cfg Config) Model {
	t.Helper()
	// Keep command execution in tests from sleeping a full second.
	if cfg.Interval == 0 {
		cfg.Interval = time.Millisecond
	}
	model := NewModel(cfg)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

// deliverHarvest runs the tick's harvest command and applies its
// message, standing in for the bubbletea runtime.
func deliverHarvest(t *testing.T, model Model) Model {
	t.Helper()
	updated, command := model.Update(tickMsg(time.Now()))
	model = updated.(Model)
	if command == nil {
		t.Fatal("tick produced no command")
	}
	message := findHarvestMsg(t, command)
	updated, _ = model.Update(message)
	return updated.(Model)
}

// findHarvestMsg executes a command (possibly a batch) and returns
// the harvestMsg it produced.
func findHarvestMsg(t *testing.T, command tea.Cmd) harvestMsg {
	t.Helper()
	switch message := command().(type) {
	case harvestMsg:
		return message
	case tea.BatchMsg:
		for _, sub := range message {
			result := sub()
			if harvested, ok := result.(harvestMsg); ok {
				return harvested
			}
		}
	}
	t.Fatal("no harvestMsg in command output")
	return harvestMsg{}
}

func TestTickDrivesHarvestWithConfiguredDemand(t *testing.T) {
	harvest := &countingHarvest{result: testResult()}
	demand := gputelem.Demand{Metrics: true, Memory: true}
	model := sizedModel(t, Config{Harvest: harvest.run, Demand: demand})

	model = deliverHarvest(t, model)

	if harvest.calls != 1 {
		t.Errorf("harvest calls = %d, want 1", harvest.calls)
	}
	if harvest.lastDemand != demand {
		t.Errorf("demand = %+v, want %+v", harvest.lastDemand, demand)
	}
	if got := model.windows.Devices(); len(got) != 2 {
		t.Errorf("devices after harvest = %v", got)
	}
}

func TestHarvestFeedsWindowsAndAggregate(t *testing.T) {
	harvest := &countingHarvest{result: testResult()}
	model := sizedModel(t, Config{Harvest: harvest.run, Demand: gputelem.Demand{Metrics: true}})

	model = deliverHarvest(t, model)
	model = deliverHarvest(t, model)

	values := model.windows.Window("GPU 1").Values()
	if len(values) != 2 || values[0] != 50 || values[1] != 50 {
		t.Errorf("GPU 1 values = %v", values)
	}
	if got := model.aggregatePercent(); got != 40 {
		t.Errorf("aggregate = %v, want mean 40", got)
	}
}

func TestPauseSkipsHarvest(t *testing.T) {
	harvest := &countingHarvest{result: testResult()}
	model := sizedModel(t, Config{Harvest: harvest.run, Demand: gputelem.Demand{Metrics: true}})

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeySpace})
	model = updated.(Model)
	if !model.paused {
		t.Fatal("space did not pause")
	}

	updated, command := model.Update(tickMsg(time.Now()))
	model = updated.(Model)
	if command == nil {
		t.Fatal("paused tick must still reschedule")
	}
	if harvest.calls != 0 {
		t.Errorf("harvest ran %d times while paused", harvest.calls)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace})
	if updated.(Model).paused {
		t.Error("second space did not resume")
	}
}

func TestQuitKeys(t *testing.T) {
	model := sizedModel(t, Config{Harvest: func(gputelem.Demand) gputelem.HarvestResult {
		return gputelem.HarvestResult{}
	}})

	for _, message := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, command := model.Update(message)
		if command == nil {
			t.Fatalf("%v produced no command", message)
		}
		if command() != tea.Quit() {
			t.Errorf("%v did not quit", message)
		}
	}
}

func TestViewBeforeFirstResize(t *testing.T) {
	model := NewModel(Config{Harvest: func(gputelem.Demand) gputelem.HarvestResult {
		return gputelem.HarvestResult{}
	}})
	if got := model.View(); got != "Loading..." {
		t.Errorf("View() = %q before sizing", got)
	}
}

func TestViewShowsLegendRows(t *testing.T) {
	harvest := &countingHarvest{result: testResult()}
	model := sizedModel(t, Config{
		Harvest:    harvest.run,
		Demand:     gputelem.Demand{Metrics: true, Memory: true, Temperature: true},
		ShowLegend: true,
		ProbeName:  "nvidia",
	})
	model = deliverHarvest(t, model)

	view := model.View()
	for _, want := range []string{"GPUScope", "nvidia", "All", "GPU 0", "GPU 1", "61°C", "n/a"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLegendToggle(t *testing.T) {
	harvest := &countingHarvest{result: testResult()}
	model := sizedModel(t, Config{
		Harvest:    harvest.run,
		Demand:     gputelem.Demand{Metrics: true},
		ShowLegend: true,
	})
	model = deliverHarvest(t, model)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	model = updated.(Model)
	if strings.Contains(model.View(), "DEVICE") {
		t.Error("legend still visible after toggle off")
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	if !strings.Contains(updated.(Model).View(), "DEVICE") {
		t.Error("legend missing after toggle back on")
	}
}

func TestDeviceColorsStableAcrossCycles(t *testing.T) {
	harvest := &countingHarvest{result: gputelem.HarvestResult{
		Metrics: []gputelem.DeviceReading{
			{Name: "first", Metric: gputelem.Utilization(10)},
		},
	}}
	model := sizedModel(t, Config{Harvest: harvest.run, Demand: gputelem.Demand{Metrics: true}})
	model = deliverHarvest(t, model)

	// A later cycle enumerates a second device before the first.
	harvest.result = gputelem.HarvestResult{
		Metrics: []gputelem.DeviceReading{
			{Name: "second", Metric: gputelem.Utilization(20)},
			{Name: "first", Metric: gputelem.Utilization(30)},
		},
	}
	model = deliverHarvest(t, model)

	if model.colorIndex["first"] != 0 || model.colorIndex["second"] != 1 {
		t.Errorf("color indexes = %v, want first-seen order", model.colorIndex)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2 << 20, "2 MiB"},
		{8 << 30, "8.0 GiB"},
		{(8 << 30) + (512 << 20), "8.5 GiB"},
	}
	for _, test := range cases {
		if got := formatBytes(test.in); got != test.want {
			t.Errorf("formatBytes(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}
