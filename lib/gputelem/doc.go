// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package gputelem collects GPU telemetry from platform-native APIs
// and produces one normalized harvest result per cycle for GPUScope's
// chart, legend, and history consumers.
//
// # Metric model
//
// GPU vendors disagree about what "usage" means: NVIDIA boards report
// instantaneous power draw in milliwatts (with an optional management
// limit), Apple accelerators report a utilization percentage. [Metric]
// reconciles the two — it carries either kind of reading and projects
// both onto a single 0-100 percentage via [Metric.AsPercentage], the
// one normalization point consumers rely on.
//
// # Harvesting
//
// [Harvester] is the sole external entry point. It holds the
// platform-appropriate [Probe] (chosen at build time by the
// gputelem/probes subpackage), forwards the caller's [Demand] flags,
// and returns the probe's [HarvestResult] unchanged. Harvesting is
// synchronous and single-caller: the underlying native handles (NVML
// session, IOKit registry port) are not guaranteed thread-safe, so no
// internal parallelism is attempted and no timeout wraps any native
// call.
//
// # Failure surface
//
// The only failure signal is absence: a vertical that was not
// requested, found no hardware, or hit a native query failure is nil
// in the result. Callers that need to distinguish these cases must
// track their own demand flags. Item-level failures (one device, one
// sensor) degrade to a skipped or explicitly-unknown entry; they never
// abort the rest of the cycle, and no steady-state condition (absent
// hardware, missing permissions, unrecognized vendor keys) panics.
//
// # Subpackages
//
//   - gputelem/nvml: NVIDIA probe. Loads libnvidia-ml via dlopen (no
//     cgo), reads memory, temperature, power, and per-process usage,
//     and merges the three overlapping process-accounting APIs into
//     one per-pid map.
//
//   - gputelem/iokit: macOS probe. Enumerates IOAccelerator registry
//     services and reads utilization from the PerformanceStatistics
//     property dictionary, tolerating the key renames Apple ships
//     between OS versions.
//
//   - gputelem/probes: build-tagged platform probe selection.
package gputelem
