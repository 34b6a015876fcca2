package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricValueKnownAndUnknownAreDistinct(t *testing.T) {
	zero := Known(0)
	unknown := Unknown()

	assert.True(t, zero.IsKnown())
	assert.False(t, unknown.IsKnown())
	assert.NotEqual(t, zero, unknown)

	// Both collapse to 0.0 in the legacy view.
	assert.Equal(t, 0.0, zero.Float())
	assert.Equal(t, 0.0, unknown.Float())
}

func TestMetricValueRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.False(t, Known(v).IsKnown(), "value %v", v)
	}
}

func TestMetricValueAtLeast(t *testing.T) {
	assert.True(t, Known(90).AtLeast(90))
	assert.True(t, Known(90.01).AtLeast(90))
	assert.False(t, Known(89.99).AtLeast(90))
	assert.False(t, Unknown().AtLeast(0))
	assert.False(t, Unknown().AtLeast(-1))
}

func TestMetricValueJSON(t *testing.T) {
	payload := map[string]MetricValue{
		"known":   Known(87.5),
		"unknown": Unknown(),
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"known":87.5,"unknown":null}`, string(data))

	var decoded map[string]MetricValue
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, payload, decoded)

	var bad MetricValue
	assert.Error(t, json.Unmarshal([]byte(`"ninety"`), &bad))
}

func TestMetricValueString(t *testing.T) {
	assert.Equal(t, "unknown", Unknown().String())
	assert.Equal(t, "2.30", Known(2.3).String())
}
