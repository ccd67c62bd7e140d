// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package gputelem

import "encoding/json"

// MetricKind discriminates the two reading shapes a [Metric] can hold.
type MetricKind int

const (
	// KindUtilization is a direct utilization percentage reading.
	// The zero Metric is a utilization reading of 0.
	KindUtilization MetricKind = iota

	// KindPower is a raw power draw reading in milliwatts with an
	// optional power management limit.
	KindPower
)

// Metric is one normalized GPU reading: either a utilization
// percentage or a power draw. Construct with [Utilization], [Power],
// or [PowerWithLimit]; the zero value is a utilization reading of 0.
//
// Utilization readings are clamped to [0,100] at construction — raw
// vendor values outside that range (observed on some driver versions)
// never escape this package. Power readings are kept raw; the
// percentage projection happens in [Metric.AsPercentage].
type Metric struct {
	kind            MetricKind
	percent         float32
	drawMilliwatts  uint32
	limitMilliwatts uint32
	hasLimit        bool
}

// Utilization returns a utilization metric, clamping pct to [0,100].
func Utilization(pct float32) Metric {
	return Metric{kind: KindUtilization, percent: clampPercent(pct)}
}

// Power returns a power metric with no known management limit.
func Power(drawMilliwatts uint32) Metric {
	return Metric{kind: KindPower, drawMilliwatts: drawMilliwatts}
}

// PowerWithLimit returns a power metric with a known management limit.
func PowerWithLimit(drawMilliwatts, limitMilliwatts uint32) Metric {
	return Metric{
		kind:            KindPower,
		drawMilliwatts:  drawMilliwatts,
		limitMilliwatts: limitMilliwatts,
		hasLimit:        true,
	}
}

// Kind returns the reading shape.
func (m Metric) Kind() MetricKind { return m.kind }

// IsPower reports whether this metric is a power reading.
func (m Metric) IsPower() bool { return m.kind == KindPower }

// AsPercentage projects the metric onto a 0-100 scale. Utilization
// readings pass through unchanged (already clamped at construction).
// Power readings become draw/limit*100 when a limit is known and
// nonzero; otherwise 0 — never negative, never NaN. Consumers must
// not re-clamp: this is the single normalization point.
func (m Metric) AsPercentage() float32 {
	switch m.kind {
	case KindPower:
		if !m.hasLimit || m.limitMilliwatts == 0 {
			// No usable limit, no percentage to compute.
			return 0
		}
		return float32(m.drawMilliwatts) / float32(m.limitMilliwatts) * 100
	default:
		return m.percent
	}
}

// DrawMilliwatts returns the raw power draw. Zero for utilization
// readings.
func (m Metric) DrawMilliwatts() uint32 { return m.drawMilliwatts }

// LimitMilliwatts returns the power management limit and whether one
// is known. Always (0, false) for utilization readings.
func (m Metric) LimitMilliwatts() (uint32, bool) {
	return m.limitMilliwatts, m.hasLimit
}

// MarshalJSON renders the metric for the --once JSON output and any
// other consumer that serializes harvest results. Power readings emit
// the raw milliwatt fields (limit omitted when unknown); both kinds
// emit the projected percentage.
func (m Metric) MarshalJSON() ([]byte, error) {
	type powerJSON struct {
		Kind            string  `json:"kind"`
		DrawMilliwatts  uint32  `json:"draw_milliwatts"`
		LimitMilliwatts *uint32 `json:"limit_milliwatts,omitempty"`
		Percent         float32 `json:"percent"`
	}
	type utilizationJSON struct {
		Kind    string  `json:"kind"`
		Percent float32 `json:"percent"`
	}

	if m.kind == KindPower {
		out := powerJSON{
			Kind:           "power",
			DrawMilliwatts: m.drawMilliwatts,
			Percent:        m.AsPercentage(),
		}
		if m.hasLimit {
			limit := m.limitMilliwatts
			out.LimitMilliwatts = &limit
		}
		return json.Marshal(out)
	}
	return json.Marshal(utilizationJSON{Kind: "utilization", Percent: m.percent})
}

// clampPercent bounds a raw vendor percentage to [0,100].
func clampPercent(pct float32) float32 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
