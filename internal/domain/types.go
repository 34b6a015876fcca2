// Package domain contains the core entities for tracking ACL-reconstruction patients through
// return-to-sport (RTS) rehabilitation: patients, assessment records, derived metric values,
// the phase gate table and the per-patient timeline.
//
// Values in this package are plain data. The arithmetic that produces derived metrics and the
// phase classification live in the service package.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Directionality tells whether a larger raw measurement means better performance.
// Strength and jump distance are higher-is-better; timed hops are lower-is-better.
type Directionality string

const (
	HigherIsBetter Directionality = "higher_is_better"
	LowerIsBetter  Directionality = "lower_is_better"
)

// IsValid reports whether d is one of the known directionalities.
func (d Directionality) IsValid() bool {
	switch d {
	case HigherIsBetter, LowerIsBetter:
		return true
	default:
		return false
	}
}

func (d Directionality) String() string {
	return string(d)
}

// PhaseLevel is the ordinal RTS phase, 0 through 4.
type PhaseLevel int

const (
	PhasePreRehab PhaseLevel = iota
	PhaseEarly
	PhaseStrength
	PhasePower
	PhaseRTSCleared
)

// MaxPhaseLevel is the highest reachable phase.
const MaxPhaseLevel = PhaseRTSCleared

// IsValid reports whether the level is within 0..4.
func (l PhaseLevel) IsValid() bool {
	return l >= PhasePreRehab && l <= MaxPhaseLevel
}

// Severity is the presentation bucket for a phase.
type Severity string

const (
	SeverityPass Severity = "pass"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

func (s Severity) String() string {
	return string(s)
}

// SeverityForLevel maps a phase level onto its presentation severity:
// level 4 passes, levels 2 and 3 warn, levels 0 and 1 fail.
func SeverityForLevel(level PhaseLevel) Severity {
	switch {
	case level >= PhaseRTSCleared:
		return SeverityPass
	case level >= PhaseStrength:
		return SeverityWarn
	default:
		return SeverityFail
	}
}

// Patient is an ACL-reconstruction patient. Patients are immutable once created
// and are referenced from records by MRN only.
type Patient struct {
	MRN         string    `json:"mrn"`
	Name        string    `json:"name"`
	SurgeryDate time.Time `json:"surgery_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the patient before it is stored.
func (p *Patient) Validate() error {
	if p.MRN == "" {
		return NewValidationError("mrn", "MRN is required", p.MRN)
	}
	if p.Name == "" {
		return NewValidationError("name", "name is required", p.Name)
	}
	if p.SurgeryDate.IsZero() {
		return NewValidationError("surgery_date", "surgery date is required", p.SurgeryDate)
	}
	return nil
}

// RawTrialSet holds the repeated raw trials for one measurement, one sequence per limb.
// It only exists while a record is being built and is never persisted.
type RawTrialSet struct {
	Uninvolved []float64 `json:"uninvolved"`
	Involved   []float64 `json:"involved"`
}

// IsEmpty reports whether neither limb has any trial.
func (s RawTrialSet) IsEmpty() bool {
	return len(s.Uninvolved) == 0 && len(s.Involved) == 0
}

// Sentinel errors shared by stores, timelines and services.
var (
	ErrNotFound         = errors.New("not found")
	ErrNoAssessment     = errors.New("no assessment recorded yet")
	ErrDuplicateRecord  = errors.New("assessment record already exists")
	ErrDuplicatePatient = errors.New("patient already exists")
)

// ParseDate accepts a civil date (2006-01-02) or an RFC 3339 timestamp and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}
