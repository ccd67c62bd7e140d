// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package gputelem

import "testing"

func TestNilFilterKeepsEverything(t *testing.T) {
	var filter *Filter
	for _, name := range []string{"NVIDIA GeForce RTX 4090", "", "anything"} {
		if !filter.ShouldKeep(name) {
			t.Errorf("nil filter dropped %q", name)
		}
	}
}

func TestFilterIncludeMode(t *testing.T) {
	filter, err := NewFilter([]string{"RTX", "Tesla"}, false)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"NVIDIA GeForce RTX 4090", true},
		{"Tesla V100", true},
		{"NVIDIA GeForce GTX 1080", false},
		{"", false},
	}
	for _, test := range tests {
		if got := filter.ShouldKeep(test.name); got != test.want {
			t.Errorf("ShouldKeep(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestFilterExcludeMode(t *testing.T) {
	filter, err := NewFilter([]string{"RTX"}, true)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	if filter.ShouldKeep("NVIDIA GeForce RTX 4090") {
		t.Error("exclude filter kept a matching name")
	}
	if !filter.ShouldKeep("Tesla V100") {
		t.Error("exclude filter dropped a non-matching name")
	}
}

func TestFilterRejectsInvalidPattern(t *testing.T) {
	if _, err := NewFilter([]string{"RTX", "(unclosed"}, false); err == nil {
		t.Error("NewFilter accepted an invalid pattern")
	}
}

func TestEmptyFilterFollowsMode(t *testing.T) {
	// An empty include list matches nothing: keep nothing. An empty
	// exclude list excludes nothing: keep everything.
	include, err := NewFilter(nil, false)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if include.ShouldKeep("any") {
		t.Error("empty include filter kept a device")
	}

	exclude, err := NewFilter(nil, true)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !exclude.ShouldKeep("any") {
		t.Error("empty exclude filter dropped a device")
	}
}
