package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// MetricValue is a derived or measured number that may be absent.
//
// "Not measured" and "measured as 0" are different clinical facts: an LSI that could not be
// computed must never look like a zero score. The zero value of MetricValue is Unknown.
type MetricValue struct {
	value float64
	known bool
}

// Known wraps a measured value. NaN and infinities are not values; they become Unknown.
func Known(v float64) MetricValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MetricValue{}
	}
	return MetricValue{value: v, known: true}
}

// Unknown is the "not measured / cannot compute" value.
func Unknown() MetricValue {
	return MetricValue{}
}

// IsKnown reports whether the value was measured or could be computed.
func (m MetricValue) IsKnown() bool {
	return m.known
}

// Value returns the number and whether it is known.
func (m MetricValue) Value() (float64, bool) {
	return m.value, m.known
}

// Float returns the legacy sentinel view: the value, or 0.0 when unknown.
// Callers that must tell the two apart use IsKnown.
func (m MetricValue) Float() float64 {
	if !m.known {
		return 0
	}
	return m.value
}

// AtLeast reports whether the value is known and >= threshold.
func (m MetricValue) AtLeast(threshold float64) bool {
	return m.known && m.value >= threshold
}

func (m MetricValue) String() string {
	if !m.known {
		return "unknown"
	}
	return strconv.FormatFloat(m.value, 'f', 2, 64)
}

// MarshalJSON encodes a known value as a number and an unknown one as null.
func (m MetricValue) MarshalJSON() ([]byte, error) {
	if !m.known {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON accepts a number or null.
func (m *MetricValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Unknown()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Known(v)
	return nil
}
