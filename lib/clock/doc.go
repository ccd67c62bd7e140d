// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock time behind a small interface so
// the sampling loop, the history store's retention sweep, and the
// dashboard tick can all be driven deterministically in tests.
//
// Production code injects [Real]; tests inject [Fake] and move time by
// hand:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	loop := &Sampler{clock: c}
//	// ... start the loop ...
//	c.WaitForTimers(1)
//	c.Advance(time.Second) // fires the sampling tick
//
// WaitForTimers blocks until the loop under test has registered its
// ticker, closing the race between registration and Advance that
// real-sleep synchronization would leave open.
package clock
