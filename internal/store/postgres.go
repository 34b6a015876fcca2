package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/domain"
)

// PostgreSQL error codes handled by the store.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = logrus.New()
	}
	return &PostgresStore{db: db, logger: logger}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// CreatePatient stores a new patient. An existing MRN yields domain.ErrDuplicatePatient.
func (s *PostgresStore) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (mrn, name, surgery_date, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (mrn) DO NOTHING
	`, patient.MRN, patient.Name, patient.SurgeryDate.UTC(), patient.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("patient %s: %w", patient.MRN, domain.ErrDuplicatePatient)
	}
	return nil
}

// GetPatient retrieves a patient by MRN.
func (s *PostgresStore) GetPatient(ctx context.Context, mrn string) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT mrn, name, surgery_date, created_at FROM patients WHERE mrn = $1", mrn)

	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", mrn, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// ListPatients returns all patients ordered by MRN.
func (s *PostgresStore) ListPatients(ctx context.Context) ([]*domain.Patient, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT mrn, name, surgery_date, created_at FROM patients ORDER BY mrn")
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// AppendAssessment stores a new record. Existing IDs are never overwritten.
func (s *PostgresStore) AppendAssessment(ctx context.Context, record *domain.AssessmentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	metrics, err := encodeMetrics(record.Metrics)
	if err != nil {
		return err
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var seq int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO assessments (
			id, mrn, visit_date, weeks_post_op, metrics, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING seq
	`,
		record.ID,
		record.MRN,
		record.VisitDate.UTC(),
		record.WeeksPostOp,
		metrics,
		record.Notes,
		createdAt.UTC(),
	).Scan(&seq)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("append %s: %w", record.ID, domain.ErrDuplicateRecord)
	case err != nil:
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pgForeignKeyViolation:
				return fmt.Errorf("patient %s: %w", record.MRN, domain.ErrNotFound)
			case pgUniqueViolation:
				return fmt.Errorf("append %s: %w", record.ID, domain.ErrDuplicateRecord)
			}
		}
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	record.Sequence = seq
	s.logger.WithFields(logrus.Fields{
		"mrn":       record.MRN,
		"record_id": record.ID,
		"seq":       seq,
	}).Debug("Assessment stored")
	return nil
}

// ListAssessments returns a patient's records ordered by visit date, then insertion.
func (s *PostgresStore) ListAssessments(ctx context.Context, mrn string) ([]*domain.AssessmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, mrn, visit_date, weeks_post_op, metrics, notes, created_at
		FROM assessments
		WHERE mrn = $1
		ORDER BY visit_date ASC, seq ASC
	`, mrn)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.AssessmentRecord, 0)
	for rows.Next() {
		r, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ExportJSON exports a patient's timeline to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, mrn string, writer io.Writer) error {
	return exportTimeline(ctx, s, mrn, writer)
}

// ImportJSON imports a timeline export from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importTimeline(ctx, s, reader)
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
