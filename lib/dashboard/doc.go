// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard is the GPUScope terminal UI, built on bubbletea
// (Elm architecture). A periodic tick drives one harvest cycle
// through an injected harvest function; the model never talks to
// native GPU APIs itself. The view is a braille line chart of each
// device's percentage series over a sliding window, with a legend
// table underneath: an "All" aggregate row first, then one row per
// device with its latest usage, memory, and temperature readings.
//
// Keyboard: q or ctrl+c quits, space pauses sampling, l toggles the
// legend. The layout reflows on terminal resize.
package dashboard
