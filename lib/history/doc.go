// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package history keeps GPU metric samples over time, at two
// lifetimes.
//
// [Window] and [Set] are in-memory rings of recent per-device
// percentage samples, sized to the visible chart width. The dashboard
// pushes one sample per device per harvest tick and reads the whole
// window back for rendering.
//
// [Store] is the durable form: an append-only SQLite table of raw
// metric samples (kind, milliwatt fields, projected percentage) for
// the --record mode, with time-range queries and retention pruning.
package history
