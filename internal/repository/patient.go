package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/domain"
)

// PatientRepository handles patient persistence
type PatientRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *pgxpool.Pool, logger *logrus.Logger) *PatientRepository {
	return &PatientRepository{
		db:  db,
		log: logger,
	}
}

// CreatePatient inserts a new patient. Patients are immutable, so an existing MRN is a conflict.
func (r *PatientRepository) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO patients (mrn, name, surgery_date, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (mrn) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		patient.MRN,
		patient.Name,
		patient.SurgeryDate.UTC(),
		patient.CreatedAt.UTC(),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"mrn":   patient.MRN,
			"error": err,
		}).Error("Failed to create patient")
		return fmt.Errorf("creating patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %s: %w", patient.MRN, domain.ErrDuplicatePatient)
	}

	r.log.WithField("mrn", patient.MRN).Info("Patient created successfully")
	return nil
}

// GetPatient retrieves a patient by MRN
func (r *PatientRepository) GetPatient(ctx context.Context, mrn string) (*domain.Patient, error) {
	query := `
		SELECT mrn, name, surgery_date, created_at
		FROM patients
		WHERE mrn = $1`

	var p domain.Patient
	err := r.db.QueryRow(ctx, query, mrn).Scan(&p.MRN, &p.Name, &p.SurgeryDate, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient %s: %w", mrn, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"mrn":   mrn,
			"error": err,
		}).Error("Failed to get patient")
		return nil, fmt.Errorf("getting patient: %w", err)
	}

	p.SurgeryDate = p.SurgeryDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// ListPatients returns all patients ordered by MRN
func (r *PatientRepository) ListPatients(ctx context.Context) ([]*domain.Patient, error) {
	query := `
		SELECT mrn, name, surgery_date, created_at
		FROM patients
		ORDER BY mrn`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	defer rows.Close()

	patients := make([]*domain.Patient, 0)
	for rows.Next() {
		var p domain.Patient
		if err := rows.Scan(&p.MRN, &p.Name, &p.SurgeryDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning patient row: %w", err)
		}
		p.SurgeryDate = p.SurgeryDate.UTC()
		p.CreatedAt = p.CreatedAt.UTC()
		patients = append(patients, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patient rows: %w", err)
	}

	return patients, nil
}
