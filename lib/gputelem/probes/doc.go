// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package probes selects the platform-appropriate GPU probe at build
// time. Exactly one implementation of [Platform] compiles into any
// given binary: the NVML probe on Linux, the IOKit probe on macOS,
// and a nil probe elsewhere. Keeping the selection in one build-tagged
// package means neither gputelem (which defines the Probe interface)
// nor the vendor subpackages (which implement it) carry platform
// conditionals.
package probes
