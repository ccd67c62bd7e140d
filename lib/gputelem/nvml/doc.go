// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package nvml implements the NVIDIA GPU probe on top of the NVIDIA
// Management Library (libnvidia-ml.so), loaded at runtime via dlopen —
// no cgo and no build-time dependency on the driver.
//
// # Session lifecycle
//
// The NVML session is explicit process-scoped state: it is created
// lazily by the first harvest that demands a vertical, memoized for
// the life of the process, and never shut down. Re-initializing NVML
// costs hundreds of milliseconds on some driver versions, which dwarfs
// any benefit of releasing the handle between cycles. If the default
// library name fails to load, a one-time fallback tries the versioned
// soname libnvidia-ml.so.1 directly — some distributions ship only the
// versioned file without the dev symlink.
//
// # Process accounting
//
// NVML exposes per-process GPU usage through three overlapping process
// lists (compute, graphics, legacy graphics) plus an engine-utilization
// sample API, each reporting a different subset of fields for a
// different subset of processes. The merger in this package reconciles
// all four into one per-pid map; see mergeProcessUsage for the
// precedence rules.
//
// # Failure behavior
//
// A missing driver, an unloadable library, or a failed init yields
// absent harvest results, never errors. Within a cycle, one device's
// or one vertical's failure degrades only that entry: an unreadable
// temperature sensor still produces a reading marked unknown, an
// unsupported process API is simply one fewer merge pass, and the
// remaining devices proceed normally.
package nvml
