package service

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/acl-rts-tracker/internal/domain"
)

// LSIResult is a standalone limb symmetry calculation.
type LSIResult struct {
	Uninvolved     domain.MetricValue    `json:"uninvolved"`
	Involved       domain.MetricValue    `json:"involved"`
	Directionality domain.Directionality `json:"directionality"`
	LSI            domain.MetricValue    `json:"lsi"`
}

// ComputeLSI aggregates both limbs' trials and compares them.
func ComputeLSI(set domain.RawTrialSet, dir domain.Directionality) (*LSIResult, error) {
	if dir == "" {
		dir = domain.HigherIsBetter
	}
	if !dir.IsValid() {
		return nil, domain.NewValidationError("directionality",
			fmt.Sprintf("must be %q or %q", domain.HigherIsBetter, domain.LowerIsBetter), dir)
	}
	uninv, inv := AggregateTrialSet(set)
	return &LSIResult{
		Uninvolved:     uninv,
		Involved:       inv,
		Directionality: dir,
		LSI:            LimbSymmetryIndex(inv, uninv, dir),
	}, nil
}

// TTBWResult is a standalone torque-to-bodyweight calculation.
type TTBWResult struct {
	Force         domain.MetricValue `json:"force_lbf"`
	BodyWeightLbs float64            `json:"body_weight_lbs"`
	MomentArmM    float64            `json:"moment_arm_m"`
	TTBW          domain.MetricValue `json:"ttbw"`
}

// ComputeTTBW aggregates force trials and normalizes them to body weight. A zero moment arm
// means "not given" and uses the builder's configured one.
func (b *RecordBuilder) ComputeTTBW(trials []float64, bodyWeightLbs, momentArm float64) (*TTBWResult, error) {
	if momentArm == 0 {
		momentArm = b.momentArm
	}
	var errs error
	if !finite(bodyWeightLbs) || bodyWeightLbs <= 0 || bodyWeightLbs > MaxBodyWeightLbs {
		errs = multierr.Append(errs, domain.NewValidationError("body_weight_lbs",
			fmt.Sprintf("must be greater than 0 and at most %g", float64(MaxBodyWeightLbs)), bodyWeightLbs))
	}
	if !finite(momentArm) || momentArm <= 0 || momentArm > MaxMomentArmM {
		errs = multierr.Append(errs, domain.NewValidationError("moment_arm_m",
			fmt.Sprintf("must be greater than 0 and at most %g", float64(MaxMomentArmM)), momentArm))
	}
	if errs != nil {
		return nil, errs
	}

	force := AggregateTrials(trials)
	return &TTBWResult{
		Force:         force,
		BodyWeightLbs: bodyWeightLbs,
		MomentArmM:    momentArm,
		TTBW:          TorqueToBodyweight(force, domain.Known(bodyWeightLbs), momentArm),
	}, nil
}

// RecordFromMetrics builds an unsaved record from already-derived metric values, for
// classifying without a patient. Nil values are Unknown; unregistered names are rejected.
func RecordFromMetrics(metrics map[string]*float64) (*domain.AssessmentRecord, error) {
	record := &domain.AssessmentRecord{Metrics: make(map[string]domain.MetricValue, len(metrics))}
	for name, v := range metrics {
		if _, ok := domain.LookupMetric(name); !ok {
			return nil, &domain.UndefinedMetricError{Metric: name}
		}
		record.Metrics[name] = optional(v)
	}
	return record, nil
}
