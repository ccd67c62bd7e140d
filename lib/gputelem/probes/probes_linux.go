// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package probes

import (
	"log/slog"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
	"github.com/gpuscope-project/gpuscope/lib/gputelem/nvml"
)

// Platform returns the NVML-backed NVIDIA probe. The NVML library is
// not loaded here — the probe initializes its process-wide session
// lazily on the first harvest that demands a vertical.
func Platform(logger *slog.Logger, filter *gputelem.Filter) gputelem.Probe {
	return nvml.NewProbe(logger, filter)
}
