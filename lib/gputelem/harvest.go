// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package gputelem

import "log/slog"

// Probe is a platform-specific GPU collector. Each platform subpackage
// (nvml, iokit) implements it; the gputelem/probes subpackage picks
// the one implementation active for the current build.
//
// Harvest runs one full cycle: it collects every requested vertical
// across every device the probe can discover and returns the result.
// A probe whose underlying library or service is unavailable returns
// the zero HarvestResult — absence, not an error. Harvest must not be
// called concurrently; the native handles underneath are not
// guaranteed thread-safe.
type Probe interface {
	// Name identifies the probe vendor for logging ("nvidia", "apple").
	Name() string

	// Harvest collects the requested verticals. Verticals whose
	// demand flag is unset must trigger no native call.
	Harvest(demand Demand) HarvestResult
}

// Harvester is the external entry point for telemetry collection. It
// contains no collection logic of its own — it dispatches to the
// platform probe and hands the result back unchanged.
type Harvester struct {
	probe  Probe
	logger *slog.Logger
}

// NewHarvester creates a Harvester around the given probe. A nil
// probe is valid and yields a Harvester whose every cycle is absent —
// platforms with no GPU telemetry source (see gputelem/probes) still
// get a working, quiet harvester rather than a special case at every
// call site.
func NewHarvester(probe Probe, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if probe != nil {
		logger.Info("gpu harvester initialized", "probe", probe.Name())
	} else {
		logger.Info("gpu harvester initialized without a platform probe")
	}
	return &Harvester{probe: probe, logger: logger}
}

// Harvest runs one harvest cycle. With no probe, or with every demand
// flag unset, it returns the zero result without touching any native
// API. The call blocks for the full duration of all native queries —
// there is no internal timeout, and exactly one caller is assumed.
func (h *Harvester) Harvest(demand Demand) HarvestResult {
	if h.probe == nil || !demand.Any() {
		return HarvestResult{}
	}
	return h.probe.Harvest(demand)
}
