// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for GPUScope.
//
// Configuration comes from a single file named by either the
// GPUSCOPE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks and no ~/.config
// discovery; a missing file is an error, and [Default] covers running
// with no file at all. Environment variables never override loaded
// values. The only expansion performed is ${VAR} and ${VAR:-default}
// in path fields, for portability of ${HOME}-relative paths.
//
// Key exports:
//
//   - [Config] -- sampling, filter, history, and dashboard settings
//   - [Default] -- a Config that works with no file present
//   - [Load] and [LoadFile] -- the two loading entry points
package config
