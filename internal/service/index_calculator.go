package service

import (
	"math"

	"github.com/acl-rts-tracker/internal/domain"
)

// Unit conversions used for torque-to-bodyweight.
const (
	NewtonsPerPoundForce = 4.44822
	KilogramsPerPound    = 0.453592

	// DefaultMomentArmMeters is the dynamometer lever arm when none is configured.
	DefaultMomentArmMeters = 0.36
)

// LimbSymmetryIndex compares the involved limb to the uninvolved one as a percentage.
//
// For higher-is-better measurements (strength, hop distance) it is involved/uninvolved*100.
// For lower-is-better measurements (timed hop) the ratio is inverted, so a faster involved limb
// still yields an LSI above 100.
//
// The result is Unknown when either operand is unknown or not positive, or the directionality is
// not recognised. Unknown means "cannot compute", never "perfect symmetry".
func LimbSymmetryIndex(involved, uninvolved domain.MetricValue, dir domain.Directionality) domain.MetricValue {
	inv, ok := involved.Value()
	if !ok || inv <= 0 {
		return domain.Unknown()
	}
	uninv, ok := uninvolved.Value()
	if !ok || uninv <= 0 {
		return domain.Unknown()
	}

	switch dir {
	case domain.HigherIsBetter:
		return domain.Known(inv / uninv * 100)
	case domain.LowerIsBetter:
		return domain.Known(uninv / inv * 100)
	default:
		return domain.Unknown()
	}
}

// TorqueToBodyweight converts a dynamometer force in lbf and a body weight in lb into
// Nm/kg using the given lever arm in metres.
//
// Unknown when force or body weight is unknown, body weight is not positive, or the moment arm
// is not positive.
func TorqueToBodyweight(force, bodyWeight domain.MetricValue, momentArm float64) domain.MetricValue {
	f, ok := force.Value()
	if !ok {
		return domain.Unknown()
	}
	bw, ok := bodyWeight.Value()
	if !ok || bw <= 0 {
		return domain.Unknown()
	}
	if math.IsNaN(momentArm) || momentArm <= 0 {
		return domain.Unknown()
	}

	torque := f * NewtonsPerPoundForce * momentArm
	mass := bw * KilogramsPerPound
	return domain.Known(torque / mass)
}

// AbsoluteDifference is |a - b|, Unknown if either side is.
func AbsoluteDifference(a, b domain.MetricValue) domain.MetricValue {
	av, ok := a.Value()
	if !ok {
		return domain.Unknown()
	}
	bv, ok := b.Value()
	if !ok {
		return domain.Unknown()
	}
	return domain.Known(math.Abs(av - bv))
}
