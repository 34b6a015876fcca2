package service

import (
	"math"

	"github.com/acl-rts-tracker/internal/domain"
)

// validTrial reports whether a raw trial counts as a genuine attempt.
//
// Policy: a trial of 0 (or less) is treated as "not attempted", not as a true zero performance.
// A legitimate zero measurement is therefore discarded along with blanks.
func validTrial(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// AggregateTrials reduces repeated trials for one limb to their mean, ignoring
// non-genuine attempts. With no valid trial the limb is Unknown.
func AggregateTrials(trials []float64) domain.MetricValue {
	var sum float64
	var n int
	for _, v := range trials {
		if !validTrial(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return domain.Unknown()
	}
	return domain.Known(sum / float64(n))
}

// AggregateTrialSet aggregates both limbs of a trial set.
func AggregateTrialSet(set domain.RawTrialSet) (uninvolved, involved domain.MetricValue) {
	return AggregateTrials(set.Uninvolved), AggregateTrials(set.Involved)
}

// BestTrial returns the largest valid trial, or Unknown.
// Not used for gating; the mean is canonical.
func BestTrial(trials []float64) domain.MetricValue {
	best := domain.Unknown()
	for _, v := range trials {
		if !validTrial(v) {
			continue
		}
		if cur, ok := best.Value(); !ok || v > cur {
			best = domain.Known(v)
		}
	}
	return best
}
