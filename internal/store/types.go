// Package store persists patients and their append-only assessment history through database/sql.
// Two dialects are provided: SQLite for the standalone server and CLI, PostgreSQL for shared
// deployments that already run the migrations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/acl-rts-tracker/internal/domain"
)

// ExportVersion is the version of the JSON export format.
const ExportVersion = "1.0"

// Store defines patient and assessment persistence plus JSON export.
type Store interface {
	domain.Store

	// ExportJSON writes one patient's full timeline as JSON.
	ExportJSON(ctx context.Context, mrn string, writer io.Writer) error

	// ImportJSON loads a timeline export. The patient is created if missing; records whose ID
	// already exists are skipped, never overwritten.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)
}

// TimelineExport represents the JSON export format.
type TimelineExport struct {
	Version     string                     `json:"version"`
	ExportedAt  time.Time                  `json:"exported_at"`
	Patient     *domain.Patient            `json:"patient"`
	Count       int                        `json:"count"`
	Assessments []*domain.AssessmentRecord `json:"assessments"`
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(s scanner) (*domain.Patient, error) {
	p := &domain.Patient{}
	if err := s.Scan(&p.MRN, &p.Name, &p.SurgeryDate, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.SurgeryDate = p.SurgeryDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func scanAssessment(s scanner) (*domain.AssessmentRecord, error) {
	r := &domain.AssessmentRecord{}
	var metrics []byte
	err := s.Scan(
		&r.Sequence, &r.ID, &r.MRN, &r.VisitDate, &r.WeeksPostOp,
		&metrics, &r.Notes, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.Metrics, err = decodeMetrics(metrics); err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	r.VisitDate = r.VisitDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func encodeMetrics(m map[string]domain.MetricValue) (string, error) {
	if m == nil {
		m = map[string]domain.MetricValue{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metrics: %w", err)
	}
	return string(data), nil
}

func decodeMetrics(data []byte) (map[string]domain.MetricValue, error) {
	m := make(map[string]domain.MetricValue)
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return m, nil
}

// exportTimeline writes the export document shared by both dialects.
func exportTimeline(ctx context.Context, s domain.Store, mrn string, writer io.Writer) error {
	patient, err := s.GetPatient(ctx, mrn)
	if err != nil {
		return err
	}
	records, err := s.ListAssessments(ctx, mrn)
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}

	export := &TimelineExport{
		Version:     ExportVersion,
		ExportedAt:  time.Now().UTC(),
		Patient:     patient,
		Count:       len(records),
		Assessments: records,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importTimeline reads an export document into s.
func importTimeline(ctx context.Context, s domain.Store, reader io.Reader) (imported int, skipped int, err error) {
	var export TimelineExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if export.Patient == nil {
		return 0, 0, domain.NewValidationError("patient", "export has no patient", nil)
	}
	if err := export.Patient.Validate(); err != nil {
		return 0, 0, err
	}

	if _, err := s.GetPatient(ctx, export.Patient.MRN); err != nil {
		if !isNotFound(err) {
			return 0, 0, fmt.Errorf("failed to check patient: %w", err)
		}
		if err := s.CreatePatient(ctx, export.Patient); err != nil {
			return 0, 0, fmt.Errorf("failed to create patient: %w", err)
		}
	}

	for _, r := range export.Assessments {
		if r.MRN != export.Patient.MRN {
			return imported, skipped, domain.NewValidationError("mrn", "assessment belongs to another patient", r.MRN)
		}
		err := s.AppendAssessment(ctx, r)
		if isDuplicate(err) {
			skipped++
			continue
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, domain.ErrDuplicateRecord)
}
