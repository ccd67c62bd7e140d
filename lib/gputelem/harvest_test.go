// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package gputelem

import (
	"testing"
)

// countingProbe records every Harvest call and returns a canned result.
type countingProbe struct {
	calls  int
	demand Demand
	result HarvestResult
}

func (p *countingProbe) Name() string { return "counting" }

func (p *countingProbe) Harvest(demand Demand) HarvestResult {
	p.calls++
	p.demand = demand
	return p.result
}

func TestHarvesterSkipsProbeWhenNothingDemanded(t *testing.T) {
	probe := &countingProbe{}
	harvester := NewHarvester(probe, nil)

	result := harvester.Harvest(Demand{})

	if probe.calls != 0 {
		t.Errorf("probe called %d times with all demand flags unset, want 0", probe.calls)
	}
	if !result.Empty() {
		t.Error("result not fully absent with all demand flags unset")
	}
}

func TestHarvesterForwardsDemandUnchanged(t *testing.T) {
	probe := &countingProbe{}
	harvester := NewHarvester(probe, nil)

	demand := Demand{Memory: true, Processes: true}
	harvester.Harvest(demand)

	if probe.calls != 1 {
		t.Fatalf("probe called %d times, want 1", probe.calls)
	}
	if probe.demand != demand {
		t.Errorf("probe received demand %+v, want %+v", probe.demand, demand)
	}
}

func TestHarvesterReturnsResultUnmodified(t *testing.T) {
	canned := HarvestResult{
		Memory: []MemoryReading{{Name: "GPU 0", TotalBytes: 1 << 30, UsedBytes: 1 << 20}},
		Metrics: []DeviceReading{
			{Name: "GPU 0", Metric: PowerWithLimit(100_000, 200_000)},
		},
		Processes:        []map[uint32]ProcessUsage{{42: {MemoryBytes: 1024, UtilizationPercent: 30}}},
		TotalMemoryBytes: 1 << 30,
	}
	probe := &countingProbe{result: canned}
	harvester := NewHarvester(probe, nil)

	result := harvester.Harvest(Demand{Memory: true, Processes: true, Metrics: true})

	if len(result.Memory) != 1 || result.Memory[0].Name != "GPU 0" {
		t.Errorf("memory vertical altered: %+v", result.Memory)
	}
	if result.TotalMemoryBytes != 1<<30 {
		t.Errorf("TotalMemoryBytes = %d, want %d", result.TotalMemoryBytes, uint64(1)<<30)
	}
	if len(result.Metrics) != 1 || result.Metrics[0].Metric.AsPercentage() != 50 {
		t.Errorf("metrics vertical altered: %+v", result.Metrics)
	}
}

func TestHarvesterWithoutProbeIsAbsent(t *testing.T) {
	harvester := NewHarvester(nil, nil)
	result := harvester.Harvest(Demand{Memory: true, Temperature: true, Processes: true, Metrics: true})
	if !result.Empty() {
		t.Error("probe-less harvester produced a non-absent result")
	}
}

func TestHarvestResultEmpty(t *testing.T) {
	if !(HarvestResult{}).Empty() {
		t.Error("zero HarvestResult not Empty")
	}
	populated := HarvestResult{Temperatures: []TemperatureReading{{Name: "GPU 0", Known: false}}}
	if populated.Empty() {
		t.Error("populated HarvestResult reports Empty")
	}
}
