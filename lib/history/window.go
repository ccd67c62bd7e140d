// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"sort"
	"sync"
)

// Window is a fixed-capacity ring of percentage samples for one
// device. Pushing past capacity overwrites the oldest sample. All
// methods are safe for concurrent use.
type Window struct {
	mutex    sync.Mutex
	samples  []float32
	capacity int
	// writePosition is the next slot to write (0 to capacity-1).
	writePosition int
	// totalPushed counts every sample ever pushed. The window holds
	// the last min(totalPushed, capacity) of them.
	totalPushed uint64
}

// NewWindow creates a window holding the last capacity samples.
// Panics if capacity is not positive.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		panic("history: non-positive window capacity")
	}
	return &Window{
		samples:  make([]float32, capacity),
		capacity: capacity,
	}
}

// Push appends one sample, evicting the oldest when full.
func (w *Window) Push(value float32) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.samples[w.writePosition] = value
	w.writePosition = (w.writePosition + 1) % w.capacity
	w.totalPushed++
}

// Values returns the retained samples oldest first. The slice is a
// copy; the caller may keep it across further pushes.
func (w *Window) Values() []float32 {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	stored := w.storedLocked()
	if stored == 0 {
		return nil
	}

	result := make([]float32, stored)
	start := (w.writePosition - stored + w.capacity) % w.capacity
	for i := 0; i < stored; i++ {
		result[i] = w.samples[(start+i)%w.capacity]
	}
	return result
}

// Latest returns the most recent sample, or ok=false when nothing has
// been pushed yet.
func (w *Window) Latest() (float32, bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.totalPushed == 0 {
		return 0, false
	}
	last := (w.writePosition - 1 + w.capacity) % w.capacity
	return w.samples[last], true
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.storedLocked()
}

// Cap returns the window capacity.
func (w *Window) Cap() int { return w.capacity }

func (w *Window) storedLocked() int {
	if w.totalPushed < uint64(w.capacity) {
		return int(w.totalPushed)
	}
	return w.capacity
}

// Set holds one Window per device, created on first observation. All
// methods are safe for concurrent use.
type Set struct {
	mutex    sync.Mutex
	capacity int
	windows  map[string]*Window
}

// NewSet creates an empty set whose windows hold capacity samples.
func NewSet(capacity int) *Set {
	if capacity <= 0 {
		panic("history: non-positive window capacity")
	}
	return &Set{
		capacity: capacity,
		windows:  make(map[string]*Window),
	}
}

// Observe pushes one sample for the named device, creating its window
// on first sight.
func (s *Set) Observe(device string, value float32) {
	s.window(device).Push(value)
}

// Window returns the named device's window, creating it if absent.
func (s *Set) Window(device string) *Window {
	return s.window(device)
}

// Devices returns every observed device name, sorted.
func (s *Set) Devices() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.windows))
	for name := range s.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Set) window(device string) *Window {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	w, ok := s.windows[device]
	if !ok {
		w = NewWindow(s.capacity)
		s.windows[device] = w
	}
	return w
}
