// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package iokit

// registry abstracts the IOKit service registry so the probe logic
// can run against fakes. The real implementation (iokit_darwin.go)
// wraps the dlopen'd IOKit/CoreFoundation frameworks.
type registry interface {
	// acceleratorServices builds the hardware-accelerator match
	// criterion and starts an enumeration. Criterion or enumeration
	// failure is probe-level: the whole cycle comes back absent.
	acceleratorServices() (serviceIterator, error)
}

// serviceIterator walks matched services. The caller must call
// release exactly once, after the walk, regardless of how it ended.
type serviceIterator interface {
	// next returns the next service, or ok=false at the null
	// sentinel that terminates enumeration.
	next() (service, bool)
	release()
}

// service is one matched registry entry. The caller owns it and must
// call release exactly once, on every exit path, including after a
// failed name or properties read.
type service interface {
	// name reads the service's fixed-capacity display name,
	// decoding invalid byte sequences permissively.
	name() (string, error)

	// properties copies the service's full property table. The
	// returned propertySet is caller-owned.
	properties() (propertySet, error)

	release()
}

// propertySet is a service's property table. Caller-owned; release
// exactly once.
type propertySet interface {
	// performanceStatistics returns the nested statistics
	// sub-dictionary, or ok=false when the service has none. The
	// returned dictionary is borrowed from the property set and
	// needs no separate release.
	performanceStatistics() (statsDict, bool)
	release()
}

// statsDict is the performance-statistics sub-dictionary.
type statsDict interface {
	// number returns the numeric value under key, converting both
	// floating and integral native numbers, or ok=false when the
	// key is absent or non-numeric.
	number(key string) (float64, bool)
}

// utilizationKeys are the known spellings of the GPU utilization
// statistic, in consultation order. Apple renames this key between
// macOS versions; the first spelling that answers wins and later ones
// are never consulted.
var utilizationKeys = []string{
	"Device Utilization %",
	"GPU Activity(%)",
	"GPU Core Utilization",
	"gpuCoreUtilization",
	"GPU Utilization",
}
