// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package gputelem

import (
	"fmt"
	"regexp"
)

// Filter is an optional name-based inclusion/exclusion filter. Probes
// apply it to temperature-capable devices before touching the sensor.
//
// In the default (include) mode, a device is kept only when its name
// matches at least one pattern. With exclude set, the list inverts: a
// device is kept only when its name matches no pattern. A nil *Filter
// keeps everything, so callers can pass an unconfigured filter through
// without a nil check at every use site.
type Filter struct {
	patterns []*regexp.Regexp
	exclude  bool
}

// NewFilter compiles the given patterns into a filter. An invalid
// pattern fails the whole construction — a filter that silently
// dropped a malformed pattern would keep or skip different devices
// than the one the user wrote.
func NewFilter(patterns []string, exclude bool) (*Filter, error) {
	filter := &Filter{exclude: exclude}
	for _, pattern := range patterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter pattern %q: %w", pattern, err)
		}
		filter.patterns = append(filter.patterns, compiled)
	}
	return filter, nil
}

// ShouldKeep reports whether a device with the given name passes the
// filter. Safe to call on a nil receiver (keeps everything).
func (f *Filter) ShouldKeep(name string) bool {
	if f == nil {
		return true
	}
	for _, pattern := range f.patterns {
		if pattern.MatchString(name) {
			return !f.exclude
		}
	}
	return f.exclude
}
