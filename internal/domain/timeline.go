package domain

import (
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"
)

// PatientTimeline is the ordered, append-only assessment history of one patient.
// Records are kept sorted by visit date; equal dates keep insertion order.
//
// A timeline is an owned value passed to whoever needs it. Appends are atomic with
// respect to readers: a reader sees the whole new record or none of it.
type PatientTimeline struct {
	mrn string

	mu      sync.RWMutex
	records []*AssessmentRecord
	ids     map[string]struct{}
	nextSeq int64
}

// NewPatientTimeline creates an empty timeline for the given MRN.
func NewPatientTimeline(mrn string) *PatientTimeline {
	return &PatientTimeline{
		mrn: mrn,
		ids: make(map[string]struct{}),
	}
}

// MRN returns the patient the timeline belongs to.
func (t *PatientTimeline) MRN() string {
	return t.mrn
}

// Append adds a record. The record must belong to this patient and its ID must be new;
// existing records are never overwritten. The timeline keeps its own copy.
func (t *PatientTimeline) Append(record *AssessmentRecord) error {
	if record == nil {
		return NewValidationError("record", "record is required", nil)
	}
	if record.MRN != t.mrn {
		return NewValidationError("mrn", fmt.Sprintf("record belongs to %q, timeline to %q", record.MRN, t.mrn), record.MRN)
	}
	if err := record.Validate(); err != nil {
		return err
	}

	stored := record.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.ids[stored.ID]; exists {
		return fmt.Errorf("append %s: %w", stored.ID, ErrDuplicateRecord)
	}

	// persisted sequences are kept as loaded
	if stored.Sequence == 0 {
		t.nextSeq++
		stored.Sequence = t.nextSeq
	} else if stored.Sequence > t.nextSeq {
		t.nextSeq = stored.Sequence
	}

	// insert after every record with visit date <= the new one
	idx := sort.Search(len(t.records), func(i int) bool {
		return t.records[i].VisitDate.After(stored.VisitDate)
	})
	t.records = append(t.records, nil)
	copy(t.records[idx+1:], t.records[idx:])
	t.records[idx] = stored
	t.ids[stored.ID] = struct{}{}

	return nil
}

// Len returns the number of records.
func (t *PatientTimeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Latest returns the most recent record by visit date (ties: last inserted).
// The boolean is false when no assessment has been recorded yet.
func (t *PatientTimeline) Latest() (*AssessmentRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.records) == 0 {
		return nil, false
	}
	return t.records[len(t.records)-1].Clone(), true
}

// Records returns copies of all records in chronological order.
func (t *PatientTimeline) Records() []*AssessmentRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*AssessmentRecord, len(t.records))
	for i, r := range t.records {
		out[i] = r.Clone()
	}
	return out
}

// Series returns a lazy, restartable sequence of (visit date, value) pairs for a registered
// metric. Records where the metric is absent or unknown are skipped. Each iteration works on
// the records present when it starts.
func (t *PatientTimeline) Series(metric string) (iter.Seq2[time.Time, float64], error) {
	if _, ok := LookupMetric(metric); !ok {
		return nil, &UndefinedMetricError{Metric: metric}
	}
	return func(yield func(time.Time, float64) bool) {
		t.mu.RLock()
		snapshot := make([]*AssessmentRecord, len(t.records))
		copy(snapshot, t.records)
		t.mu.RUnlock()

		for _, r := range snapshot {
			v, ok := r.Metrics[metric].Value()
			if !ok {
				continue
			}
			if !yield(r.VisitDate, v) {
				return
			}
		}
	}, nil
}

// CollectSeries drains a series into a slice.
func CollectSeries(seq iter.Seq2[time.Time, float64]) []SeriesPoint {
	points := make([]SeriesPoint, 0)
	for date, value := range seq {
		points = append(points, SeriesPoint{Date: date, Value: value})
	}
	return points
}
