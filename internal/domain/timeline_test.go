package domain

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func record(id string, visit time.Time, metrics map[string]MetricValue) *AssessmentRecord {
	return &AssessmentRecord{
		ID:        id,
		MRN:       "#123456",
		VisitDate: visit,
		Metrics:   metrics,
		CreatedAt: visit,
	}
}

func TestTimelineLatestOnEmpty(t *testing.T) {
	tl := NewPatientTimeline("#123456")

	latest, ok := tl.Latest()
	assert.False(t, ok)
	assert.Nil(t, latest)
	assert.Equal(t, 0, tl.Len())
}

func TestTimelineOrdersByVisitDate(t *testing.T) {
	tl := NewPatientTimeline("#123456")

	require.NoError(t, tl.Append(record("r3", day(30), nil)))
	require.NoError(t, tl.Append(record("r1", day(0), nil)))
	require.NoError(t, tl.Append(record("r2", day(14), nil)))

	var ids []string
	for _, r := range tl.Records() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids)

	latest, ok := tl.Latest()
	require.True(t, ok)
	assert.Equal(t, "r3", latest.ID)
}

func TestTimelineTiesKeepInsertionOrder(t *testing.T) {
	tl := NewPatientTimeline("#123456")

	require.NoError(t, tl.Append(record("first", day(7), nil)))
	require.NoError(t, tl.Append(record("second", day(7), nil)))
	require.NoError(t, tl.Append(record("earlier", day(1), nil)))

	records := tl.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "earlier", records[0].ID)
	assert.Equal(t, "first", records[1].ID)
	assert.Equal(t, "second", records[2].ID)
	assert.Less(t, records[1].Sequence, records[2].Sequence)

	latest, ok := tl.Latest()
	require.True(t, ok)
	assert.Equal(t, "second", latest.ID)
}

func TestTimelineKeepsLoadedSequences(t *testing.T) {
	tl := NewPatientTimeline("#123456")

	later := record("a", day(30), nil)
	later.Sequence = 5
	earlier := record("b", day(1), nil)
	earlier.Sequence = 3
	require.NoError(t, tl.Append(later))
	require.NoError(t, tl.Append(earlier))

	records := tl.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, int64(3), records[0].Sequence)
	assert.Equal(t, "a", records[1].ID)
	assert.Equal(t, int64(5), records[1].Sequence)

	require.NoError(t, tl.Append(record("c", day(40), nil)))
	latest, ok := tl.Latest()
	require.True(t, ok)
	assert.Equal(t, "c", latest.ID)
	assert.Equal(t, int64(6), latest.Sequence)
}

func TestTimelineRejectsDuplicateID(t *testing.T) {
	tl := NewPatientTimeline("#123456")
	require.NoError(t, tl.Append(record("r1", day(0), map[string]MetricValue{MetricACLRSI: Known(50)})))

	err := tl.Append(record("r1", day(5), map[string]MetricValue{MetricACLRSI: Known(99)}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRecord))

	// The original record is untouched.
	latest, _ := tl.Latest()
	assert.Equal(t, Known(50), latest.Metrics[MetricACLRSI])
	assert.Equal(t, 1, tl.Len())
}

func TestTimelineRejectsForeignRecord(t *testing.T) {
	tl := NewPatientTimeline("#123456")
	r := record("r1", day(0), nil)
	r.MRN = "#000000"

	err := tl.Append(r)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, 0, tl.Len())
}

func TestTimelineRejectsInvalidRecord(t *testing.T) {
	tl := NewPatientTimeline("#123456")

	assert.Error(t, tl.Append(nil))
	assert.Error(t, tl.Append(record("", day(0), nil)))
	assert.Error(t, tl.Append(record("r1", time.Time{}, nil)))
}

func TestTimelineRecordsAreCopies(t *testing.T) {
	tl := NewPatientTimeline("#123456")
	original := record("r1", day(0), map[string]MetricValue{MetricQuadLSI: Known(70)})
	require.NoError(t, tl.Append(original))

	original.Metrics[MetricQuadLSI] = Known(1)
	got := tl.Records()
	got[0].Metrics[MetricQuadLSI] = Known(2)

	latest, _ := tl.Latest()
	assert.Equal(t, Known(70), latest.Metrics[MetricQuadLSI])
}

func TestTimelineSeries(t *testing.T) {
	tl := NewPatientTimeline("#123456")
	require.NoError(t, tl.Append(record("r1", day(0), map[string]MetricValue{MetricQuadLSI: Known(60)})))
	require.NoError(t, tl.Append(record("r2", day(14), map[string]MetricValue{MetricQuadLSI: Unknown()})))
	require.NoError(t, tl.Append(record("r3", day(28), map[string]MetricValue{MetricQuadLSI: Known(75)})))
	require.NoError(t, tl.Append(record("r4", day(42), map[string]MetricValue{})))

	seq, err := tl.Series(MetricQuadLSI)
	require.NoError(t, err)

	points := CollectSeries(seq)
	assert.Equal(t, []SeriesPoint{
		{Date: day(0), Value: 60},
		{Date: day(28), Value: 75},
	}, points)

	// Restartable: a second pass yields the same points.
	assert.Equal(t, points, CollectSeries(seq))
}

func TestTimelineSeriesEarlyStop(t *testing.T) {
	tl := NewPatientTimeline("#123456")
	for i := 0; i < 5; i++ {
		require.NoError(t, tl.Append(record(fmt.Sprintf("r%d", i), day(i), map[string]MetricValue{MetricACLRSI: Known(float64(50 + i))})))
	}

	seq, err := tl.Series(MetricACLRSI)
	require.NoError(t, err)

	var seen []float64
	for _, v := range seq {
		seen = append(seen, v)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []float64{50, 51}, seen)
}

func TestTimelineSeriesEmptyAndUndefined(t *testing.T) {
	tl := NewPatientTimeline("#123456")

	seq, err := tl.Series(MetricHamstringLSI)
	require.NoError(t, err)
	assert.Empty(t, CollectSeries(seq))

	_, err = tl.Series("Grip_Strength")
	require.Error(t, err)
	assert.True(t, IsUndefinedMetric(err))
}

func TestTimelineConcurrentAppendAndRead(t *testing.T) {
	tl := NewPatientTimeline("#123456")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = tl.Append(record(fmt.Sprintf("r%02d", i), day(i%5), map[string]MetricValue{MetricQuadLSI: Known(float64(i))}))
		}(i)
		go func() {
			defer wg.Done()
			if seq, err := tl.Series(MetricQuadLSI); err == nil {
				_ = CollectSeries(seq)
			}
			tl.Latest()
		}()
	}
	wg.Wait()

	records := tl.Records()
	require.Len(t, records, 20)
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		assert.False(t, cur.VisitDate.Before(prev.VisitDate))
		if cur.VisitDate.Equal(prev.VisitDate) {
			assert.Less(t, prev.Sequence, cur.Sequence)
		}
	}
}

func TestRecordMetricLookup(t *testing.T) {
	r := record("r1", day(0), map[string]MetricValue{MetricQuadLSI: Unknown()})

	v, err := r.Metric(MetricQuadLSI)
	require.NoError(t, err)
	assert.False(t, v.IsKnown())

	_, err = r.Metric(MetricHamstringLSI)
	assert.True(t, IsUndefinedMetric(err))
	assert.False(t, r.MetricOrUnknown(MetricHamstringLSI).IsKnown())
}
