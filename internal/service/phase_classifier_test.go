package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acl-rts-tracker/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func classifyRecord(rsi, quadLSI, hamLSI, ttbw domain.MetricValue) *domain.AssessmentRecord {
	return &domain.AssessmentRecord{
		ID:        "rec-1",
		MRN:       "#123456",
		VisitDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Metrics: map[string]domain.MetricValue{
			domain.MetricACLRSI:       rsi,
			domain.MetricQuadLSI:      quadLSI,
			domain.MetricHamstringLSI: hamLSI,
			domain.MetricQuadTTBWInv:  ttbw,
		},
	}
}

func TestPhaseClassifier_EndToEnd(t *testing.T) {
	classifier := NewDefaultPhaseClassifier(testLogger())

	tests := []struct {
		name     string
		record   *domain.AssessmentRecord
		level    domain.PhaseLevel
		label    string
		severity domain.Severity
	}{
		{
			name:     "RTS cleared",
			record:   classifyRecord(domain.Known(92), domain.Known(91), domain.Known(85), domain.Known(3.1)),
			level:    domain.PhaseRTSCleared,
			label:    "RTS CLEARED",
			severity: domain.SeverityPass,
		},
		{
			name:     "Strength phase",
			record:   classifyRecord(domain.Known(75), domain.Known(82), domain.Known(81), domain.Known(2.4)),
			level:    domain.PhaseStrength,
			label:    "Strength Phase",
			severity: domain.SeverityWarn,
		},
		{
			name:     "Power phase",
			record:   classifyRecord(domain.Known(88), domain.Known(86), domain.Known(85), domain.Known(2.8)),
			level:    domain.PhasePower,
			label:    "Power Phase",
			severity: domain.SeverityWarn,
		},
		{
			name:     "Early phase",
			record:   classifyRecord(domain.Known(70), domain.Known(60), domain.Known(80), domain.Known(1.5)),
			level:    domain.PhaseEarly,
			label:    "Early Phase",
			severity: domain.SeverityFail,
		},
		{
			name:     "Pre-rehab",
			record:   classifyRecord(domain.Known(40), domain.Known(60), domain.Known(70), domain.Known(1.5)),
			level:    domain.PhasePreRehab,
			label:    "Pre-Rehab / Early Post-Op",
			severity: domain.SeverityFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(tt.record)
			assert.Equal(t, tt.level, result.Level)
			assert.Equal(t, tt.label, result.Label)
			assert.Equal(t, tt.severity, result.Severity)
			assert.Equal(t, tt.record.ID, result.RecordID)
			assert.Len(t, result.Gates, 4)
		})
	}
}

func TestPhaseClassifier_HigherGatesDoNotSkipLowerOnes(t *testing.T) {
	classifier := NewDefaultPhaseClassifier(testLogger())

	// Everything for level 4 except the hamstring criterion of level 1.
	result := classifier.Classify(classifyRecord(domain.Known(95), domain.Known(95), domain.Known(50), domain.Known(3.5)))

	assert.Equal(t, domain.PhasePreRehab, result.Level)
	assert.False(t, result.Gates[0].Passed)
	assert.True(t, result.Gates[3].Passed)
	require.Len(t, result.Blocking, 1)
	assert.Equal(t, domain.MetricHamstringLSI, result.Blocking[0].Metric)
}

func TestPhaseClassifier_UnknownMetricsFailTheirGate(t *testing.T) {
	classifier := NewDefaultPhaseClassifier(testLogger())

	result := classifier.Classify(classifyRecord(domain.Known(95), domain.Known(95), domain.Known(90), domain.Unknown()))
	assert.Equal(t, domain.PhaseEarly, result.Level)

	var blocking []string
	for _, b := range result.Blocking {
		blocking = append(blocking, b.Metric)
	}
	assert.Equal(t, []string{domain.MetricQuadTTBWInv}, blocking)
	assert.False(t, result.Blocking[0].Actual.IsKnown())

	// A record with no metrics at all stays at level 0.
	empty := classifier.Classify(&domain.AssessmentRecord{ID: "empty", MRN: "#1", Metrics: map[string]domain.MetricValue{}})
	assert.Equal(t, domain.PhasePreRehab, empty.Level)
	assert.Len(t, empty.Blocking, 2)

	// A measured zero and an unknown both fail but are reported differently.
	zero := classifier.Classify(classifyRecord(domain.Known(0), domain.Known(0), domain.Known(0), domain.Known(0)))
	assert.True(t, zero.Blocking[0].Actual.IsKnown())
	assert.Equal(t, domain.Known(-90), zero.GoalDeltas[domain.MetricACLRSI])
	assert.NotEqual(t, domain.Unknown(), zero.GoalDeltas[domain.MetricQuadLSI])
}

func TestPhaseClassifier_MonotoneGate(t *testing.T) {
	classifier := NewDefaultPhaseClassifier(testLogger())
	table := classifier.Table()

	rsis := []float64{0, 69, 70, 84, 85, 89, 90, 100}
	lsis := []float64{0, 79, 80, 84, 85, 89, 90, 120}
	ttbws := []float64{0, 2.29, 2.3, 2.69, 2.7, 2.99, 3.0, 4}

	for _, rsi := range rsis {
		for _, quad := range lsis {
			for _, ham := range lsis {
				for _, ttbw := range ttbws {
					record := classifyRecord(domain.Known(rsi), domain.Known(quad), domain.Known(ham), domain.Known(ttbw))
					result := classifier.Classify(record)
					k := int(result.Level)

					for i := 0; i < k; i++ {
						if !gateHolds(table.Gates[i], record) {
							t.Fatalf("level %d but gate %d fails for rsi=%v quad=%v ham=%v ttbw=%v", k, i+1, rsi, quad, ham, ttbw)
						}
					}
					if k < int(domain.MaxPhaseLevel) && gateHolds(table.Gates[k], record) {
						t.Fatalf("level %d but gate %d holds for rsi=%v quad=%v ham=%v ttbw=%v", k, k+1, rsi, quad, ham, ttbw)
					}
					if k < int(domain.MaxPhaseLevel) {
						assert.NotEmpty(t, result.Blocking)
					} else {
						assert.Empty(t, result.Blocking)
					}
				}
			}
		}
	}
}

func gateHolds(gate domain.PhaseGate, record *domain.AssessmentRecord) bool {
	for _, c := range gate.Criteria {
		if !record.MetricOrUnknown(c.Metric).AtLeast(c.Min) {
			return false
		}
	}
	return true
}

func TestPhaseClassifier_Idempotent(t *testing.T) {
	classifier := NewDefaultPhaseClassifier(testLogger())
	record := classifyRecord(domain.Known(75), domain.Known(82), domain.Known(81), domain.Known(2.4))

	first := classifier.Classify(record)
	second := classifier.Classify(record)
	assert.Equal(t, first, second)
	assert.Equal(t, record.VisitDate, first.EvaluatedAt)
}

func TestPhaseClassifier_GoalDeltas(t *testing.T) {
	classifier := NewDefaultPhaseClassifier(testLogger())
	result := classifier.Classify(classifyRecord(domain.Known(75), domain.Known(92.5), domain.Known(81), domain.Known(2.4)))

	assert.Equal(t, domain.Known(-15), result.GoalDeltas[domain.MetricACLRSI])
	assert.Equal(t, domain.Known(2.5), result.GoalDeltas[domain.MetricQuadLSI])
}

func TestPhaseClassifier_RejectsMalformedTable(t *testing.T) {
	table := domain.DefaultPhaseTable()
	table.Gates = table.Gates[:2]

	_, err := NewPhaseClassifier(testLogger(), table)
	assert.Error(t, err)
}

func TestPhaseClassifier_Radar(t *testing.T) {
	classifier := NewDefaultPhaseClassifier(testLogger())
	record := classifyRecord(domain.Known(80), domain.Known(85), domain.Known(88), domain.Known(3.6))
	record.Metrics[domain.MetricSquatAsym] = domain.Known(4)

	radar := classifier.Radar(record)
	require.Len(t, radar, 5)

	byAxis := make(map[string]domain.RadarAxis)
	for _, a := range radar {
		byAxis[a.Axis] = a
	}
	assert.Equal(t, domain.Known(80), byAxis[AxisACLRSI].Current)
	assert.Equal(t, domain.Known(100), byAxis[AxisQuadTTBW].Current)
	assert.Equal(t, 100.0, byAxis[AxisQuadTTBW].Target)
	assert.Equal(t, domain.Known(80), byAxis[AxisSquatSymmetry].Current)

	delete(record.Metrics, domain.MetricSquatAsym)
	radar = classifier.Radar(record)
	assert.False(t, radar[4].Current.IsKnown())
}
