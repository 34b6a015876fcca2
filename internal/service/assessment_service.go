package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/domain"
)

// MetricsRecorder receives engine events for instrumentation.
type MetricsRecorder interface {
	AssessmentRecorded(mrn string)
	ValidationFailed(fields int)
	PhaseClassified(level domain.PhaseLevel, severity domain.Severity)
}

type nopRecorder struct{}

func (nopRecorder) AssessmentRecorded(string)                           {}
func (nopRecorder) ValidationFailed(int)                                {}
func (nopRecorder) PhaseClassified(domain.PhaseLevel, domain.Severity) {}

// AssessmentService wires the engine to its collaborators: it looks patients up, builds records,
// keeps timelines append-only and classifies the latest record on demand.
//
// It holds no per-patient state. Every call loads the patient's timeline from the assessment
// store, so the service can be shared by concurrent requests; writers for the same patient are
// serialized by the store.
type AssessmentService struct {
	logger      *logrus.Logger
	patients    domain.PatientStore
	assessments domain.AssessmentStore
	builder     *RecordBuilder
	classifier  *PhaseClassifier
	recorder    MetricsRecorder
	now         func() time.Time
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	logger *logrus.Logger,
	patients domain.PatientStore,
	assessments domain.AssessmentStore,
	builder *RecordBuilder,
	classifier *PhaseClassifier,
) *AssessmentService {
	if builder == nil {
		builder = NewRecordBuilder(DefaultMomentArmMeters)
	}
	if classifier == nil {
		classifier = NewDefaultPhaseClassifier(logger)
	}
	return &AssessmentService{
		logger:      logger,
		patients:    patients,
		assessments: assessments,
		builder:     builder,
		classifier:  classifier,
		recorder:    nopRecorder{},
		now:         time.Now,
	}
}

// WithMetrics attaches an instrumentation recorder.
func (s *AssessmentService) WithMetrics(recorder MetricsRecorder) *AssessmentService {
	if recorder != nil {
		s.recorder = recorder
	}
	return s
}

// Classifier returns the phase classifier in use.
func (s *AssessmentService) Classifier() *PhaseClassifier {
	return s.classifier
}

// Builder returns the record builder in use.
func (s *AssessmentService) Builder() *RecordBuilder {
	return s.builder
}

// RegisterPatient validates and stores a new patient.
func (s *AssessmentService) RegisterPatient(ctx context.Context, patient *domain.Patient) error {
	if patient == nil {
		return domain.NewValidationError("patient", "patient is required", nil)
	}
	if err := patient.Validate(); err != nil {
		return err
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = s.now().UTC()
	}

	if err := s.patients.CreatePatient(ctx, patient); err != nil {
		return fmt.Errorf("failed to register patient %s: %w", patient.MRN, err)
	}

	s.logger.WithFields(logrus.Fields{
		"mrn":          patient.MRN,
		"surgery_date": patient.SurgeryDate.Format(time.DateOnly),
	}).Info("Patient registered")
	return nil
}

// GetPatient looks a patient up by MRN.
func (s *AssessmentService) GetPatient(ctx context.Context, mrn string) (*domain.Patient, error) {
	if mrn == "" {
		return nil, domain.NewValidationError("mrn", "MRN is required", mrn)
	}
	patient, err := s.patients.GetPatient(ctx, mrn)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient %s: %w", mrn, err)
	}
	return patient, nil
}

// ListPatients returns every registered patient.
func (s *AssessmentService) ListPatients(ctx context.Context) ([]*domain.Patient, error) {
	patients, err := s.patients.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// BuildRecord validates a submission for a patient and returns the record without storing it.
func (s *AssessmentService) BuildRecord(ctx context.Context, mrn string, in *domain.AssessmentInput) (*domain.AssessmentRecord, error) {
	patient, err := s.GetPatient(ctx, mrn)
	if err != nil {
		return nil, err
	}
	record, err := s.builder.Build(patient, in)
	if err != nil {
		fields := domain.ValidationErrors(err)
		s.recorder.ValidationFailed(len(fields))
		s.logger.WithFields(logrus.Fields{
			"mrn":    mrn,
			"errors": len(fields),
		}).Warn("Assessment rejected")
		return nil, err
	}
	return record, nil
}

// RecordAssessment builds a record, appends it to the patient's timeline and persists it.
// Nothing is stored unless every step succeeds.
func (s *AssessmentService) RecordAssessment(ctx context.Context, mrn string, in *domain.AssessmentInput) (*domain.AssessmentRecord, error) {
	record, err := s.BuildRecord(ctx, mrn, in)
	if err != nil {
		return nil, err
	}

	timeline, err := s.loadTimeline(ctx, mrn)
	if err != nil {
		return nil, err
	}
	if err := timeline.Append(record); err != nil {
		return nil, fmt.Errorf("failed to append assessment: %w", err)
	}
	if err := s.assessments.AppendAssessment(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store assessment: %w", err)
	}

	s.recorder.AssessmentRecorded(mrn)
	s.logger.WithFields(logrus.Fields{
		"mrn":           mrn,
		"record_id":     record.ID,
		"visit_date":    record.VisitDate.Format(time.DateOnly),
		"weeks_post_op": record.WeeksPostOp,
		"assessments":   timeline.Len(),
	}).Info("Assessment recorded")

	return record, nil
}

// Classify computes the phase of a single record.
func (s *AssessmentService) Classify(record *domain.AssessmentRecord) domain.PhaseResult {
	result := s.classifier.Classify(record)
	s.recorder.PhaseClassified(result.Level, result.Severity)
	return result
}

// Timeline loads a patient's full history.
func (s *AssessmentService) Timeline(ctx context.Context, mrn string) (*domain.PatientTimeline, error) {
	if _, err := s.GetPatient(ctx, mrn); err != nil {
		return nil, err
	}
	return s.loadTimeline(ctx, mrn)
}

// CurrentPhase classifies the patient's most recent record. A patient with no record yet
// yields domain.ErrNoAssessment.
func (s *AssessmentService) CurrentPhase(ctx context.Context, mrn string) (*domain.PhaseReport, error) {
	patient, err := s.GetPatient(ctx, mrn)
	if err != nil {
		return nil, err
	}
	timeline, err := s.loadTimeline(ctx, mrn)
	if err != nil {
		return nil, err
	}

	latest, ok := timeline.Latest()
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", mrn, domain.ErrNoAssessment)
	}

	return &domain.PhaseReport{
		Patient:     *patient,
		Latest:      latest,
		Phase:       s.Classify(latest),
		Radar:       s.classifier.Radar(latest),
		Assessments: timeline.Len(),
	}, nil
}

// MetricSeries returns the known values of one metric across the patient's history.
func (s *AssessmentService) MetricSeries(ctx context.Context, mrn, metric string) ([]domain.SeriesPoint, error) {
	if _, ok := domain.LookupMetric(metric); !ok {
		return nil, &domain.UndefinedMetricError{Metric: metric}
	}
	timeline, err := s.Timeline(ctx, mrn)
	if err != nil {
		return nil, err
	}
	seq, err := timeline.Series(metric)
	if err != nil {
		return nil, err
	}
	return domain.CollectSeries(seq), nil
}

func (s *AssessmentService) loadTimeline(ctx context.Context, mrn string) (*domain.PatientTimeline, error) {
	records, err := s.assessments.ListAssessments(ctx, mrn)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load assessments for %s: %w", mrn, err)
	}

	timeline := domain.NewPatientTimeline(mrn)
	for _, r := range records {
		if err := timeline.Append(r); err != nil {
			return nil, fmt.Errorf("corrupt history for %s: %w", mrn, err)
		}
	}
	return timeline, nil
}
