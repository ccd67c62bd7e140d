// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package iokit implements the Apple GPU probe on top of the IOKit
// registry. It enumerates IOAccelerator services (discrete GPUs on
// Intel Macs, the unified GPU on Apple Silicon) and reads the
// utilization percentage from each service's PerformanceStatistics
// property dictionary.
//
// Apple renames the utilization key between macOS versions, so the
// probe tries an ordered list of known spellings and takes the first
// that answers. A service with no recognizable statistics still
// yields a device reading of 0% — the hardware exists even when its
// counters are unreadable.
//
// Registry handles (iterator, service objects, property dictionaries)
// are strictly scoped to one harvest call: acquired, read, and
// released before the call returns, on every exit path. One broken
// service never aborts enumeration of the rest; a failure to build
// the match criterion or start enumeration yields an absent result
// for the whole cycle.
//
// The IOKit and CoreFoundation frameworks are loaded at runtime via
// dlopen (no cgo); the probe logic itself is platform-neutral and
// tested against fake registries.
package iokit
