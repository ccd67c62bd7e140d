// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package probes

import (
	"log/slog"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
	"github.com/gpuscope-project/gpuscope/lib/gputelem/iokit"
)

// Platform returns the IOKit-backed Apple GPU probe. The filter is
// unused on macOS: the IOAccelerator probe produces only the metric
// vertical, and the name filter applies to temperature-capable
// devices.
func Platform(logger *slog.Logger, _ *gputelem.Filter) gputelem.Probe {
	return iokit.NewProbe(logger)
}
