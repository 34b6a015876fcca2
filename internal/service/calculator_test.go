package service

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acl-rts-tracker/internal/domain"
)

func TestComputeLSI(t *testing.T) {
	t.Run("strength defaults to higher is better", func(t *testing.T) {
		res, err := ComputeLSI(domain.RawTrialSet{
			Uninvolved: []float64{100, 110, 0},
			Involved:   []float64{84, 84},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, domain.HigherIsBetter, res.Directionality)
		assert.Equal(t, domain.Known(105), res.Uninvolved)
		assert.InDelta(t, 80.0, res.LSI.Float(), 1e-9)
	})

	t.Run("timed hop inverts", func(t *testing.T) {
		res, err := ComputeLSI(domain.RawTrialSet{
			Uninvolved: []float64{12},
			Involved:   []float64{10},
		}, domain.LowerIsBetter)
		require.NoError(t, err)
		assert.InDelta(t, 120.0, res.LSI.Float(), 1e-9)
	})

	t.Run("missing limb is unknown", func(t *testing.T) {
		res, err := ComputeLSI(domain.RawTrialSet{Uninvolved: []float64{12}}, domain.HigherIsBetter)
		require.NoError(t, err)
		assert.False(t, res.LSI.IsKnown())
	})

	t.Run("bad directionality", func(t *testing.T) {
		_, err := ComputeLSI(domain.RawTrialSet{}, "sideways")
		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
	})
}

func TestComputeTTBW(t *testing.T) {
	b := NewRecordBuilder(DefaultMomentArmMeters)

	res, err := b.ComputeTTBW([]float64{100, 0}, 150, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMomentArmMeters, res.MomentArmM)
	assert.InDelta(t, 2.3536, res.TTBW.Float(), 1e-4)

	res, err = b.ComputeTTBW(nil, 150, 0.4)
	require.NoError(t, err)
	assert.False(t, res.TTBW.IsKnown())
	assert.Equal(t, 0.4, res.MomentArmM)

	_, err = b.ComputeTTBW([]float64{100}, 0, 2)
	require.Error(t, err)
	fields := domain.ValidationErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "body_weight_lbs", fields[0].Field)
	assert.Equal(t, "moment_arm_m", fields[1].Field)
}

func TestComputeTTBWRejectsInvalidMomentArm(t *testing.T) {
	b := NewRecordBuilder(DefaultMomentArmMeters)

	for _, arm := range []float64{-0.5, -1e-9, math.NaN(), math.Inf(1), 1.5} {
		t.Run(fmt.Sprintf("%g", arm), func(t *testing.T) {
			res, err := b.ComputeTTBW([]float64{100}, 150, arm)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, domain.IsValidationError(err))
			fields := domain.ValidationErrors(err)
			require.Len(t, fields, 1)
			assert.Equal(t, "moment_arm_m", fields[0].Field)
		})
	}
}

func TestRecordFromMetrics(t *testing.T) {
	record, err := RecordFromMetrics(map[string]*float64{
		domain.MetricACLRSI:  floatPtr(92),
		domain.MetricQuadLSI: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Known(92), record.Metrics[domain.MetricACLRSI])
	assert.False(t, record.Metrics[domain.MetricQuadLSI].IsKnown())

	_, err = RecordFromMetrics(map[string]*float64{"Grip": floatPtr(1)})
	assert.True(t, domain.IsUndefinedMetric(err))
}
