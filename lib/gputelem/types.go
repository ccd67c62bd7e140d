// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package gputelem

// Demand is the caller-supplied set of flags naming which telemetry
// verticals are actually needed this cycle. Probes treat each flag as
// a hard gate: an unrequested vertical triggers no native call at all,
// not a post-hoc filter of a full query.
type Demand struct {
	// Memory requests per-device total/used byte counts.
	Memory bool `json:"memory"`

	// Temperature requests the per-device GPU temperature sensor.
	Temperature bool `json:"temperature"`

	// Processes requests per-process GPU usage accounting.
	Processes bool `json:"processes"`

	// Metrics requests the normalized power/utilization metric for
	// the chart and legend widgets.
	Metrics bool `json:"metrics"`
}

// Any reports whether at least one vertical is requested.
func (d Demand) Any() bool {
	return d.Memory || d.Temperature || d.Processes || d.Metrics
}

// DeviceReading pairs a device name with its normalized metric. The
// name is unique only within one probe's enumeration of one cycle —
// it is not a stable cross-cycle or cross-vendor identity.
type DeviceReading struct {
	Name   string `json:"name"`
	Metric Metric `json:"metric"`
}

// MemoryReading is one device's memory vertical entry. TotalBytes is
// always nonzero: devices reporting a zero total (seen on some
// virtual functions) are skipped rather than recorded.
type MemoryReading struct {
	Name       string `json:"name"`
	TotalBytes uint64 `json:"total_bytes"`
	UsedBytes  uint64 `json:"used_bytes"`
}

// TemperatureReading is one device's temperature vertical entry. A
// device whose sensor read failed still appears, with Known false —
// "this device exists but its temperature is unknown" is a different
// statement than omitting the device.
type TemperatureReading struct {
	Name    string  `json:"name"`
	Celsius float32 `json:"celsius"`
	Known   bool    `json:"known"`
}

// ProcessUsage is one process's GPU usage on one device, assembled by
// merging partial records from up to four native query passes keyed
// by process id (see the nvml subpackage merger).
type ProcessUsage struct {
	MemoryBytes        uint64 `json:"memory_bytes"`
	UtilizationPercent uint32 `json:"utilization_percent"`
}

// HarvestResult is one harvest cycle's output: four independently
// optional verticals. A vertical is nil when it was not requested or
// when zero items were produced; absence never carries an error
// payload. Every field is rebuilt in full each cycle — nothing in it
// references probe-internal state.
type HarvestResult struct {
	// Memory holds per-device memory readings.
	Memory []MemoryReading `json:"memory,omitempty"`

	// Temperatures holds per-device temperature readings.
	Temperatures []TemperatureReading `json:"temperatures,omitempty"`

	// Processes holds one per-pid usage map for each device whose
	// merge produced at least one process. Devices with an empty
	// merge result are omitted entirely.
	Processes []map[uint32]ProcessUsage `json:"processes,omitempty"`

	// TotalMemoryBytes is the summed total memory of every device
	// visited while process accounting was requested — including
	// devices whose own process map came back empty. Consumers use
	// it to compute percentage-of-device memory figures. Zero when
	// Processes is nil.
	TotalMemoryBytes uint64 `json:"total_memory_bytes,omitempty"`

	// Metrics holds the per-device power/utilization readings.
	Metrics []DeviceReading `json:"metrics,omitempty"`
}

// Empty reports whether every vertical is absent.
func (r HarvestResult) Empty() bool {
	return r.Memory == nil && r.Temperatures == nil && r.Processes == nil && r.Metrics == nil
}
