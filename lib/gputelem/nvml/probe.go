// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package nvml

import (
	"log/slog"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
)

// Probe implements gputelem.Probe for NVIDIA GPUs. It is stateless
// apart from the process-wide NVML session it obtains through the
// openSession hook; every harvest rebuilds its result in full.
type Probe struct {
	logger *slog.Logger
	filter *gputelem.Filter

	// openSession returns the process-wide NVML session. Production
	// probes use the memoized dlopen initializer; tests inject fakes.
	openSession func() (session, error)
}

// newProbe wires a probe to an arbitrary session source. NewProbe (in
// session_linux.go) binds the real one.
func newProbe(logger *slog.Logger, filter *gputelem.Filter, openSession func() (session, error)) *Probe {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Probe{logger: logger, filter: filter, openSession: openSession}
}

// Name identifies the probe vendor.
func (p *Probe) Name() string { return "nvidia" }

// Harvest collects the requested verticals across all NVML-visible
// devices. An unrequested vertical triggers no NVML call — with every
// flag unset not even the session is initialized. Library or
// enumeration failure yields the zero result; one device's or one
// vertical's failure degrades only its own entries.
func (p *Probe) Harvest(demand gputelem.Demand) gputelem.HarvestResult {
	if !demand.Any() {
		return gputelem.HarvestResult{}
	}

	sess, err := p.openSession()
	if err != nil {
		p.logger.Debug("nvml session unavailable", "error", err)
		return gputelem.HarvestResult{}
	}

	count, err := sess.deviceCount()
	if err != nil {
		p.logger.Debug("nvml device count failed", "error", err)
		return gputelem.HarvestResult{}
	}

	var result gputelem.HarvestResult
	var totalMemory uint64

	for index := uint32(0); index < count; index++ {
		dev, err := sess.deviceByIndex(index)
		if err != nil {
			p.logger.Warn("nvml device handle failed, skipping device",
				"index", index, "error", err)
			continue
		}

		deviceName, nameErr := dev.name()
		if nameErr != nil {
			p.logger.Warn("nvml device name failed",
				"index", index, "error", nameErr)
		}

		if nameErr == nil {
			if demand.Memory {
				if mem, err := dev.memoryInfo(); err == nil && mem.totalBytes != 0 {
					result.Memory = append(result.Memory, gputelem.MemoryReading{
						Name:       deviceName,
						TotalBytes: mem.totalBytes,
						UsedBytes:  mem.usedBytes,
					})
				}
			}

			if demand.Temperature && p.filter.ShouldKeep(deviceName) {
				reading := gputelem.TemperatureReading{Name: deviceName}
				if celsius, err := dev.temperature(); err == nil {
					reading.Celsius = float32(celsius)
					reading.Known = true
				} else {
					// The device exists; its sensor answer does not.
					p.logger.Debug("nvml temperature read failed",
						"device", deviceName, "error", err)
				}
				result.Temperatures = append(result.Temperatures, reading)
			}
		}

		if demand.Processes {
			procs := mergeProcessUsage(dev)
			if len(procs) > 0 {
				result.Processes = append(result.Processes, procs)
			}
			// The grand total accumulates this device's memory even
			// when its own process map came back empty — consumers
			// divide per-process bytes by the fleet-wide total.
			if mem, err := dev.memoryInfo(); err == nil {
				totalMemory += mem.totalBytes
			}
		}

		if demand.Metrics && nameErr == nil {
			if drawMilliwatts, err := dev.powerUsage(); err == nil {
				metric := gputelem.Power(drawMilliwatts)
				if limit, err := dev.powerManagementLimit(); err == nil {
					metric = gputelem.PowerWithLimit(drawMilliwatts, limit)
				}
				result.Metrics = append(result.Metrics, gputelem.DeviceReading{
					Name:   deviceName,
					Metric: metric,
				})
			} else {
				p.logger.Debug("nvml power usage read failed",
					"device", deviceName, "error", err)
			}
		}
	}

	if result.Processes != nil {
		result.TotalMemoryBytes = totalMemory
	}
	return result
}
