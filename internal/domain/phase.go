package domain

import (
	"fmt"
	"time"
)

// Phase labels.
const (
	LabelPreRehab   = "Pre-Rehab / Early Post-Op"
	LabelEarly      = "Early Phase"
	LabelStrength   = "Strength Phase"
	LabelPower      = "Power Phase"
	LabelRTSCleared = "RTS CLEARED"
)

// RTSTarget is the symmetry/readiness goal used for "to goal" deltas.
const RTSTarget = 90.0

// Criterion is a single threshold: the metric must be known and >= Min.
type Criterion struct {
	Metric string  `json:"metric"`
	Min    float64 `json:"min"`
}

// PhaseGate holds the incremental criteria that lift a patient into Level,
// on top of every lower gate.
type PhaseGate struct {
	Level    PhaseLevel  `json:"level"`
	Label    string      `json:"label"`
	Criteria []Criterion `json:"criteria"`
}

// PhaseTable is the ordered gate list for levels 1..4. Level 0 has no gate.
type PhaseTable struct {
	BaseLabel string      `json:"base_label"`
	Gates     []PhaseGate `json:"gates"`
}

// DefaultPhaseTable returns the canonical monotone gate table.
func DefaultPhaseTable() PhaseTable {
	return PhaseTable{
		BaseLabel: LabelPreRehab,
		Gates: []PhaseGate{
			{Level: PhaseEarly, Label: LabelEarly, Criteria: []Criterion{
				{Metric: MetricACLRSI, Min: 70},
				{Metric: MetricHamstringLSI, Min: 80},
			}},
			{Level: PhaseStrength, Label: LabelStrength, Criteria: []Criterion{
				{Metric: MetricQuadLSI, Min: 80},
				{Metric: MetricQuadTTBWInv, Min: 2.3},
			}},
			{Level: PhasePower, Label: LabelPower, Criteria: []Criterion{
				{Metric: MetricACLRSI, Min: 85},
				{Metric: MetricQuadLSI, Min: 85},
				{Metric: MetricQuadTTBWInv, Min: 2.7},
			}},
			{Level: PhaseRTSCleared, Label: LabelRTSCleared, Criteria: []Criterion{
				{Metric: MetricACLRSI, Min: 90},
				{Metric: MetricQuadLSI, Min: 90},
				{Metric: MetricQuadTTBWInv, Min: 3.0},
			}},
		},
	}
}

// Validate checks that gates cover levels 1..4 in order and each has criteria.
func (t PhaseTable) Validate() error {
	if t.BaseLabel == "" {
		return fmt.Errorf("phase table: base label is required")
	}
	if len(t.Gates) != int(MaxPhaseLevel) {
		return fmt.Errorf("phase table: expected %d gates, got %d", MaxPhaseLevel, len(t.Gates))
	}
	for i, gate := range t.Gates {
		want := PhaseLevel(i + 1)
		if gate.Level != want {
			return fmt.Errorf("phase table: gate %d has level %d, want %d", i, gate.Level, want)
		}
		if gate.Label == "" {
			return fmt.Errorf("phase table: gate %d has no label", want)
		}
		if len(gate.Criteria) == 0 {
			return fmt.Errorf("phase table: gate %d has no criteria", want)
		}
		for _, c := range gate.Criteria {
			if _, ok := LookupMetric(c.Metric); !ok {
				return fmt.Errorf("phase table: gate %d: %w", want, &UndefinedMetricError{Metric: c.Metric})
			}
		}
	}
	return nil
}

// LabelFor returns the label of a level.
func (t PhaseTable) LabelFor(level PhaseLevel) string {
	if level == PhasePreRehab {
		return t.BaseLabel
	}
	for _, g := range t.Gates {
		if g.Level == level {
			return g.Label
		}
	}
	return ""
}

// CriterionEvaluation is one criterion checked against a record.
type CriterionEvaluation struct {
	Metric string      `json:"metric"`
	Min    float64     `json:"min"`
	Actual MetricValue `json:"actual"`
	Met    bool        `json:"met"`
}

// GateEvaluation is the outcome of one gate, evaluated on its own criteria only.
type GateEvaluation struct {
	Level    PhaseLevel            `json:"level"`
	Label    string                `json:"label"`
	Passed   bool                  `json:"passed"`
	Criteria []CriterionEvaluation `json:"criteria"`
}

// PhaseResult is the classification of a single record. It is derived, never stored.
type PhaseResult struct {
	Level    PhaseLevel `json:"level"`
	Label    string     `json:"label"`
	Severity Severity   `json:"severity"`

	Gates []GateEvaluation `json:"gates"`
	// Blocking lists the unmet criteria of the next gate; empty once cleared.
	Blocking []CriterionEvaluation `json:"blocking"`
	// GoalDeltas is value minus RTSTarget for the headline metrics.
	GoalDeltas map[string]MetricValue `json:"goal_deltas"`

	RecordID    string    `json:"record_id"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// RadarAxis is one normalized spoke of the readiness radar.
type RadarAxis struct {
	Axis    string      `json:"axis"`
	Current MetricValue `json:"current"`
	Target  float64     `json:"target"`
}

// PhaseReport bundles the classification of the latest record with the context a
// dashboard needs around it.
type PhaseReport struct {
	Patient     Patient           `json:"patient"`
	Latest      *AssessmentRecord `json:"latest"`
	Phase       PhaseResult       `json:"phase"`
	Radar       []RadarAxis       `json:"radar"`
	Assessments int               `json:"assessments"`
}
