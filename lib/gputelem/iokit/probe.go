// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package iokit

import (
	"log/slog"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
)

// Probe implements gputelem.Probe for Apple GPUs. It produces only
// the metric vertical: VRAM figures are not meaningful under unified
// memory, and IOAccelerator exposes no temperature or per-process
// accounting.
type Probe struct {
	logger   *slog.Logger
	registry registry
}

// newProbeWith wires a probe to an arbitrary registry. NewProbe (in
// iokit_darwin.go) binds the real IOKit one.
func newProbeWith(logger *slog.Logger, reg registry) *Probe {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Probe{logger: logger, registry: reg}
}

// Name identifies the probe vendor.
func (p *Probe) Name() string { return "apple" }

// Harvest enumerates IOAccelerator services and reads one utilization
// metric per service. Registry failure, zero matched services, or an
// unset metric demand all yield the zero result.
func (p *Probe) Harvest(demand gputelem.Demand) gputelem.HarvestResult {
	if !demand.Metrics {
		return gputelem.HarvestResult{}
	}

	iterator, err := p.registry.acceleratorServices()
	if err != nil {
		p.logger.Debug("accelerator enumeration unavailable", "error", err)
		return gputelem.HarvestResult{}
	}
	defer iterator.release()

	var readings []gputelem.DeviceReading
	for {
		svc, ok := iterator.next()
		if !ok {
			break
		}
		if reading, ok := p.readService(svc); ok {
			readings = append(readings, reading)
		}
	}

	if len(readings) == 0 {
		return gputelem.HarvestResult{}
	}
	return gputelem.HarvestResult{Metrics: readings}
}

// readService extracts one device reading from a single service,
// releasing every acquired handle on exit. A failure here
// skips this service only.
func (p *Probe) readService(svc service) (gputelem.DeviceReading, bool) {
	defer svc.release()

	deviceName, err := svc.name()
	if err != nil {
		p.logger.Debug("accelerator name read failed", "error", err)
		return gputelem.DeviceReading{}, false
	}

	props, err := svc.properties()
	if err != nil {
		p.logger.Debug("accelerator properties read failed",
			"device", deviceName, "error", err)
		return gputelem.DeviceReading{}, false
	}
	defer props.release()

	// A service without readable statistics is still a device; it
	// reports as idle rather than vanishing from the legend.
	utilization := float32(0)
	if stats, ok := props.performanceStatistics(); ok {
		if value, ok := lookupUtilization(stats); ok {
			utilization = value
		}
	}

	return gputelem.DeviceReading{
		Name:   deviceName,
		Metric: gputelem.Utilization(utilization),
	}, true
}

// lookupUtilization tries the known utilization key spellings in
// order; the first that answers wins.
func lookupUtilization(stats statsDict) (float32, bool) {
	for _, key := range utilizationKeys {
		if value, ok := stats.number(key); ok {
			return float32(value), true
		}
	}
	return 0, false
}
