package domain

import (
	"time"
)

// AssessmentRecord is one clinical visit. Records are append-only snapshots:
// created on submission, never mutated and never deleted.
type AssessmentRecord struct {
	ID          string                 `json:"id"`
	MRN         string                 `json:"mrn"`
	VisitDate   time.Time              `json:"visit_date"`
	WeeksPostOp int                    `json:"weeks_post_op"`
	Metrics     map[string]MetricValue `json:"metrics"`
	Notes       string                 `json:"notes"`
	CreatedAt   time.Time              `json:"created_at"`

	// Sequence is the insertion order within a timeline; it breaks visit-date ties.
	Sequence int64 `json:"sequence"`
}

// Metric returns the named metric. A name absent from the record is an UndefinedMetricError;
// a present but unmeasured metric is returned as Unknown without error.
func (r *AssessmentRecord) Metric(name string) (MetricValue, error) {
	v, ok := r.Metrics[name]
	if !ok {
		return Unknown(), &UndefinedMetricError{Metric: name}
	}
	return v, nil
}

// MetricOrUnknown returns the named metric, treating absence as Unknown.
func (r *AssessmentRecord) MetricOrUnknown(name string) MetricValue {
	return r.Metrics[name]
}

// Clone returns a deep copy so callers cannot reach a stored record's metrics map.
func (r *AssessmentRecord) Clone() *AssessmentRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Metrics = make(map[string]MetricValue, len(r.Metrics))
	for k, v := range r.Metrics {
		c.Metrics[k] = v
	}
	return &c
}

// Validate checks the structural invariants every stored record must hold.
func (r *AssessmentRecord) Validate() error {
	if r.ID == "" {
		return NewValidationError("id", "record ID is required", r.ID)
	}
	if r.MRN == "" {
		return NewValidationError("mrn", "MRN is required", r.MRN)
	}
	if r.VisitDate.IsZero() {
		return NewValidationError("visit_date", "visit date is required", r.VisitDate)
	}
	if r.WeeksPostOp < 0 {
		return NewValidationError("weeks_post_op", "must be zero or positive", r.WeeksPostOp)
	}
	return nil
}

// AssessmentInput is the raw visit submission collected by a form layer.
// Pointer fields are optional; nil means "not entered".
type AssessmentInput struct {
	VisitDate   time.Time `json:"visit_date"`
	WeeksPostOp *int      `json:"weeks_post_op,omitempty"`

	// Subjective scores, bounded: ACL-RSI 0..100, LEFS 0..80.
	ACLRSI *int `json:"acl_rsi"`
	LEFS   *int `json:"lefs"`

	BodyWeightLbs float64  `json:"body_weight_lbs"`
	MomentArmM    *float64 `json:"moment_arm_m,omitempty"`

	// Hand-held dynamometer forces in lbf.
	QuadForce      RawTrialSet `json:"quad_force"`
	HamstringForce RawTrialSet `json:"hamstring_force"`

	// Hop tests: distances in cm, the 6 m timed hop in seconds.
	SingleHop RawTrialSet `json:"single_hop"`
	TripleHop RawTrialSet `json:"triple_hop"`
	TimedHop  RawTrialSet `json:"timed_hop_6m"`

	// Y-balance anterior reach in cm.
	YBalanceUninvolved *float64 `json:"y_balance_uninvolved,omitempty"`
	YBalanceInvolved   *float64 `json:"y_balance_involved,omitempty"`

	// Force plate asymmetries in percent.
	SquatAsymmetry *float64 `json:"squat_asymmetry,omitempty"`
	CMJAsymmetry   *float64 `json:"cmj_asymmetry,omitempty"`

	Notes string `json:"notes"`
}

// SeriesPoint is one (date, value) pair of a metric trend.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
