package service

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/acl-rts-tracker/internal/domain"
)

// Input bounds.
const (
	MaxACLRSI        = 100
	MaxLEFS          = 80
	MaxBodyWeightLbs = 1000.0
	MaxMomentArmM    = 1.0
	MaxAsymmetryPct  = 100.0
)

const week = 7 * 24 * time.Hour

// RecordBuilder validates a raw visit submission and assembles one immutable AssessmentRecord.
// Construction is all-or-nothing: either every field validates and a full record is returned,
// or all field errors are returned together and no record exists.
type RecordBuilder struct {
	momentArm float64
	now       func() time.Time
	newID     func() string
}

// NewRecordBuilder creates a builder using the given default moment arm in metres.
// A non-positive value falls back to DefaultMomentArmMeters.
func NewRecordBuilder(momentArm float64) *RecordBuilder {
	if momentArm <= 0 || math.IsNaN(momentArm) {
		momentArm = DefaultMomentArmMeters
	}
	return &RecordBuilder{
		momentArm: momentArm,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// WithClock overrides the creation timestamp source.
func (b *RecordBuilder) WithClock(now func() time.Time) *RecordBuilder {
	b.now = now
	return b
}

// MomentArm returns the default lever arm in metres.
func (b *RecordBuilder) MomentArm() float64 {
	return b.momentArm
}

// Build validates in against patient and derives every metric of the record.
func (b *RecordBuilder) Build(patient *domain.Patient, in *domain.AssessmentInput) (*domain.AssessmentRecord, error) {
	if patient == nil {
		return nil, domain.NewValidationError("mrn", "patient is required", nil)
	}
	if in == nil {
		return nil, domain.NewValidationError("input", "assessment input is required", nil)
	}

	weeks, err := b.validate(patient, in)
	if err != nil {
		return nil, err
	}

	momentArm := b.momentArm
	if in.MomentArmM != nil {
		momentArm = *in.MomentArmM
	}
	bodyWeight := domain.Known(in.BodyWeightLbs)

	quadUninv, quadInv := AggregateTrialSet(in.QuadForce)
	hamUninv, hamInv := AggregateTrialSet(in.HamstringForce)
	singleUninv, singleInv := AggregateTrialSet(in.SingleHop)
	tripleUninv, tripleInv := AggregateTrialSet(in.TripleHop)
	timedUninv, timedInv := AggregateTrialSet(in.TimedHop)

	metrics := map[string]domain.MetricValue{
		domain.MetricACLRSI:        domain.Known(float64(*in.ACLRSI)),
		domain.MetricLEFS:          domain.Known(float64(*in.LEFS)),
		domain.MetricBodyWeight:    bodyWeight,
		domain.MetricQuadLSI:       LimbSymmetryIndex(quadInv, quadUninv, domain.HigherIsBetter),
		domain.MetricHamstringLSI:  LimbSymmetryIndex(hamInv, hamUninv, domain.HigherIsBetter),
		domain.MetricQuadTTBWInv:   TorqueToBodyweight(quadInv, bodyWeight, momentArm),
		domain.MetricQuadTTBWUninv: TorqueToBodyweight(quadUninv, bodyWeight, momentArm),
		domain.MetricHopSingleLSI:  LimbSymmetryIndex(singleInv, singleUninv, domain.HigherIsBetter),
		domain.MetricHopTripleLSI:  LimbSymmetryIndex(tripleInv, tripleUninv, domain.HigherIsBetter),
		domain.MetricHop6mLSI:      LimbSymmetryIndex(timedInv, timedUninv, domain.LowerIsBetter),
		domain.MetricYBalanceDiff:  AbsoluteDifference(optional(in.YBalanceUninvolved), optional(in.YBalanceInvolved)),
		domain.MetricSquatAsym:     optional(in.SquatAsymmetry),
		domain.MetricCMJAsym:       optional(in.CMJAsymmetry),
	}

	return &domain.AssessmentRecord{
		ID:          b.newID(),
		MRN:         patient.MRN,
		VisitDate:   in.VisitDate,
		WeeksPostOp: weeks,
		Metrics:     metrics,
		Notes:       in.Notes,
		CreatedAt:   b.now().UTC(),
	}, nil
}

// validate collects every field error and returns the weeks post-op on success.
func (b *RecordBuilder) validate(patient *domain.Patient, in *domain.AssessmentInput) (int, error) {
	var errs error
	weeks := 0

	switch {
	case in.VisitDate.IsZero():
		errs = multierr.Append(errs, domain.NewValidationError("visit_date", "visit date is required", nil))
	case !patient.SurgeryDate.IsZero() && civilDate(in.VisitDate).Before(civilDate(patient.SurgeryDate)):
		errs = multierr.Append(errs, domain.NewValidationError("visit_date",
			fmt.Sprintf("visit date precedes surgery date %s", patient.SurgeryDate.Format(time.DateOnly)),
			in.VisitDate.Format(time.DateOnly)))
	default:
		weeks = WeeksPostOp(patient.SurgeryDate, in.VisitDate)
	}

	if in.WeeksPostOp != nil {
		if *in.WeeksPostOp < 0 {
			errs = multierr.Append(errs, domain.NewValidationError("weeks_post_op", "must be zero or positive", *in.WeeksPostOp))
		} else {
			weeks = *in.WeeksPostOp
		}
	}

	errs = multierr.Append(errs, requireIntRange("acl_rsi", in.ACLRSI, 0, MaxACLRSI))
	errs = multierr.Append(errs, requireIntRange("lefs", in.LEFS, 0, MaxLEFS))

	if !finite(in.BodyWeightLbs) || in.BodyWeightLbs <= 0 || in.BodyWeightLbs > MaxBodyWeightLbs {
		errs = multierr.Append(errs, domain.NewValidationError("body_weight_lbs",
			fmt.Sprintf("must be greater than 0 and at most %.0f", MaxBodyWeightLbs), in.BodyWeightLbs))
	}
	if in.MomentArmM != nil {
		if v := *in.MomentArmM; !finite(v) || v <= 0 || v > MaxMomentArmM {
			errs = multierr.Append(errs, domain.NewValidationError("moment_arm_m",
				fmt.Sprintf("must be greater than 0 and at most %.1f", MaxMomentArmM), v))
		}
	}

	errs = multierr.Append(errs, optionalRange("y_balance_uninvolved", in.YBalanceUninvolved, 0, math.MaxFloat64))
	errs = multierr.Append(errs, optionalRange("y_balance_involved", in.YBalanceInvolved, 0, math.MaxFloat64))
	errs = multierr.Append(errs, optionalRange("squat_asymmetry", in.SquatAsymmetry, 0, MaxAsymmetryPct))
	errs = multierr.Append(errs, optionalRange("cmj_asymmetry", in.CMJAsymmetry, 0, MaxAsymmetryPct))

	return weeks, errs
}

// WeeksPostOp is the number of whole weeks between surgery and visit, never negative.
func WeeksPostOp(surgery, visit time.Time) int {
	if surgery.IsZero() || visit.IsZero() {
		return 0
	}
	d := civilDate(visit).Sub(civilDate(surgery))
	if d <= 0 {
		return 0
	}
	return int(d / week)
}

func requireIntRange(field string, v *int, lo, hi int) error {
	if v == nil {
		return domain.NewValidationError(field, "is required", nil)
	}
	if *v < lo || *v > hi {
		return domain.NewValidationError(field, fmt.Sprintf("must be between %d and %d", lo, hi), *v)
	}
	return nil
}

func optionalRange(field string, v *float64, lo, hi float64) error {
	if v == nil {
		return nil
	}
	if !finite(*v) || *v < lo || *v > hi {
		if hi == math.MaxFloat64 {
			return domain.NewValidationError(field, fmt.Sprintf("must be at least %g", lo), *v)
		}
		return domain.NewValidationError(field, fmt.Sprintf("must be between %g and %g", lo, hi), *v)
	}
	return nil
}

func optional(v *float64) domain.MetricValue {
	if v == nil {
		return domain.Unknown()
	}
	return domain.Known(*v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
