package service

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/domain"
)

// goalMetrics are the headline metrics reported as distance to the RTS target.
var goalMetrics = []string{domain.MetricACLRSI, domain.MetricQuadLSI}

// Radar axis names.
const (
	AxisACLRSI        = "ACL-RSI"
	AxisQuadLSI       = "Quad LSI"
	AxisHamstringLSI  = "Hamstring LSI"
	AxisQuadTTBW      = "Quad TTBW"
	AxisSquatSymmetry = "Squat Symmetry"
)

// PhaseClassifier applies the monotone cumulative gate table to a single record.
// It keeps no state between calls.
type PhaseClassifier struct {
	logger *logrus.Logger
	table  domain.PhaseTable
}

// NewPhaseClassifier creates a classifier for the given table, rejecting malformed tables.
func NewPhaseClassifier(logger *logrus.Logger, table domain.PhaseTable) (*PhaseClassifier, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid phase table: %w", err)
	}
	return &PhaseClassifier{
		logger: logger,
		table:  table,
	}, nil
}

// NewDefaultPhaseClassifier creates a classifier over the canonical gate table.
func NewDefaultPhaseClassifier(logger *logrus.Logger) *PhaseClassifier {
	c, err := NewPhaseClassifier(logger, domain.DefaultPhaseTable())
	if err != nil {
		// the built-in table is covered by tests
		panic(err)
	}
	return c
}

// Table returns the gate table in use.
func (c *PhaseClassifier) Table() domain.PhaseTable {
	return c.table
}

// Classify computes the phase of a record. The level is the highest k such that gates 1..k all
// pass; an unknown or absent metric fails its criterion. Every gate is evaluated for reporting,
// but a passing gate above a failing one does not count.
func (c *PhaseClassifier) Classify(record *domain.AssessmentRecord) domain.PhaseResult {
	if record == nil {
		record = &domain.AssessmentRecord{}
	}

	result := domain.PhaseResult{
		Level:       domain.PhasePreRehab,
		Gates:       make([]domain.GateEvaluation, 0, len(c.table.Gates)),
		Blocking:    []domain.CriterionEvaluation{},
		GoalDeltas:  make(map[string]domain.MetricValue, len(goalMetrics)),
		RecordID:    record.ID,
		EvaluatedAt: record.VisitDate,
	}

	climbing := true
	for _, gate := range c.table.Gates {
		eval := evaluateGate(gate, record)
		result.Gates = append(result.Gates, eval)

		if !climbing {
			continue
		}
		if eval.Passed {
			result.Level = gate.Level
			continue
		}
		climbing = false
		for _, ce := range eval.Criteria {
			if !ce.Met {
				result.Blocking = append(result.Blocking, ce)
			}
		}
	}

	result.Label = c.table.LabelFor(result.Level)
	result.Severity = domain.SeverityForLevel(result.Level)

	for _, name := range goalMetrics {
		v, ok := record.MetricOrUnknown(name).Value()
		if !ok {
			result.GoalDeltas[name] = domain.Unknown()
			continue
		}
		result.GoalDeltas[name] = domain.Known(v - domain.RTSTarget)
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"record_id": record.ID,
			"mrn":       record.MRN,
			"level":     int(result.Level),
			"label":     result.Label,
			"severity":  result.Severity,
			"blocking":  len(result.Blocking),
		}).Debug("Record classified")
	}

	return result
}

func evaluateGate(gate domain.PhaseGate, record *domain.AssessmentRecord) domain.GateEvaluation {
	eval := domain.GateEvaluation{
		Level:    gate.Level,
		Label:    gate.Label,
		Passed:   true,
		Criteria: make([]domain.CriterionEvaluation, 0, len(gate.Criteria)),
	}
	for _, crit := range gate.Criteria {
		actual := record.MetricOrUnknown(crit.Metric)
		met := actual.AtLeast(crit.Min)
		eval.Criteria = append(eval.Criteria, domain.CriterionEvaluation{
			Metric: crit.Metric,
			Min:    crit.Min,
			Actual: actual,
			Met:    met,
		})
		if !met {
			eval.Passed = false
		}
	}
	return eval
}

// Radar returns the five normalized readiness axes of a record with their targets.
// TTBW is scaled so 3.0 Nm/kg maps to 100; squat asymmetry becomes a symmetry score of
// 100 - 5*asym, floored at 0.
func (c *PhaseClassifier) Radar(record *domain.AssessmentRecord) []domain.RadarAxis {
	if record == nil {
		record = &domain.AssessmentRecord{}
	}

	ttbw := domain.Unknown()
	if v, ok := record.MetricOrUnknown(domain.MetricQuadTTBWInv).Value(); ok {
		ttbw = domain.Known(math.Min(v/3.0*100, 100))
	}
	squat := domain.Unknown()
	if v, ok := record.MetricOrUnknown(domain.MetricSquatAsym).Value(); ok {
		squat = domain.Known(math.Max(100-5*v, 0))
	}

	return []domain.RadarAxis{
		{Axis: AxisACLRSI, Current: record.MetricOrUnknown(domain.MetricACLRSI), Target: 90},
		{Axis: AxisQuadLSI, Current: record.MetricOrUnknown(domain.MetricQuadLSI), Target: 90},
		{Axis: AxisHamstringLSI, Current: record.MetricOrUnknown(domain.MetricHamstringLSI), Target: 90},
		{Axis: AxisQuadTTBW, Current: ttbw, Target: 100},
		{Axis: AxisSquatSymmetry, Current: squat, Target: 90},
	}
}
