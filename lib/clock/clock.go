// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time surface GPUScope code depends on. Anything that
// would call time.Now, time.After, or time.NewTicker takes a Clock
// instead (usually as a struct field) so tests can substitute [Fake].
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. If d <= 0 the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks on C at the given
	// interval. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Read ticks from C and call Stop when
// done. C is buffered with capacity 1; a slow consumer drops ticks
// rather than queueing them, matching time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop turns the ticker off. No ticks arrive on C after Stop returns;
// C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset changes the interval and restarts the tick cycle.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }
