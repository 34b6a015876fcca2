package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/acl-rts-tracker/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection serializes appends per patient.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if logger == nil {
		logger = logrus.New()
	}
	logger.WithField("path", dbPath).Debug("SQLite store opened")

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		mrn TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		surgery_date DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS assessments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		mrn TEXT NOT NULL REFERENCES patients(mrn),
		visit_date DATETIME NOT NULL,
		weeks_post_op INTEGER NOT NULL DEFAULT 0,
		metrics TEXT NOT NULL DEFAULT '{}',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_mrn_visit ON assessments(mrn, visit_date, seq);
	`

	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// CreatePatient stores a new patient. An existing MRN yields domain.ErrDuplicatePatient.
func (s *SQLiteStore) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM patients WHERE mrn = ?", patient.MRN).Scan(&exists)
	if err == nil {
		return fmt.Errorf("patient %s: %w", patient.MRN, domain.ErrDuplicatePatient)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO patients (mrn, name, surgery_date, created_at) VALUES (?, ?, ?, ?)",
		patient.MRN, patient.Name, patient.SurgeryDate.UTC(), patient.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return tx.Commit()
}

// GetPatient retrieves a patient by MRN.
func (s *SQLiteStore) GetPatient(ctx context.Context, mrn string) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT mrn, name, surgery_date, created_at FROM patients WHERE mrn = ?", mrn)

	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", mrn, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return p, nil
}

// ListPatients returns all patients ordered by MRN.
func (s *SQLiteStore) ListPatients(ctx context.Context) ([]*domain.Patient, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT mrn, name, surgery_date, created_at FROM patients ORDER BY mrn")
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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

// AppendAssessment stores a new record. The patient must exist and the ID must be new;
// stored records are never updated.
func (s *SQLiteStore) AppendAssessment(ctx context.Context, record *domain.AssessmentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	metrics, err := encodeMetrics(record.Metrics)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM patients WHERE mrn = ?", record.MRN).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("patient %s: %w", record.MRN, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check patient: %w", err)
	}

	err = tx.QueryRowContext(ctx, "SELECT 1 FROM assessments WHERE id = ?", record.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("append %s: %w", record.ID, domain.ErrDuplicateRecord)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO assessments (
			id, mrn, visit_date, weeks_post_op, metrics, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.MRN,
		record.VisitDate.UTC(),
		record.WeeksPostOp,
		metrics,
		record.Notes,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
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
func (s *SQLiteStore) ListAssessments(ctx context.Context, mrn string) ([]*domain.AssessmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, mrn, visit_date, weeks_post_op, metrics, notes, created_at
		FROM assessments
		WHERE mrn = ?
		ORDER BY visit_date ASC, seq ASC
	`, mrn)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) ExportJSON(ctx context.Context, mrn string, writer io.Writer) error {
	return exportTimeline(ctx, s, mrn, writer)
}

// ImportJSON imports a timeline export from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importTimeline(ctx, s, reader)
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
