// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin

package probes

import (
	"log/slog"

	"github.com/gpuscope-project/gpuscope/lib/gputelem"
)

// Platform returns nil on platforms with no GPU telemetry source.
// The harvester treats a nil probe as a permanently absent one.
func Platform(logger *slog.Logger, _ *gputelem.Filter) gputelem.Probe {
	logger.Info("no gpu probe available on this platform")
	return nil
}
