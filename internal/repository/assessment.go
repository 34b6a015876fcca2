package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/database"
	"github.com/acl-rts-tracker/internal/domain"
)

const pgForeignKeyViolation = "23503"

// AssessmentRepository handles append-only assessment persistence
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// AppendAssessment inserts a new record. An existing ID is never overwritten.
func (r *AssessmentRepository) AppendAssessment(ctx context.Context, record *domain.AssessmentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	metrics := record.Metrics
	if metrics == nil {
		metrics = map[string]domain.MetricValue{}
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO assessments (
			id, mrn, visit_date, weeks_post_op, metrics, notes, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (id) DO NOTHING
		RETURNING seq`

	var seq int64
	err = r.db.QueryRow(ctx, query,
		record.ID,
		record.MRN,
		record.VisitDate.UTC(),
		record.WeeksPostOp,
		metricsJSON,
		record.Notes,
		createdAt.UTC(),
	).Scan(&seq)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("append %s: %w", record.ID, domain.ErrDuplicateRecord)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("patient %s: %w", record.MRN, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"record_id": record.ID,
			"mrn":       record.MRN,
			"error":     err,
		}).Error("Failed to append assessment")
		return fmt.Errorf("appending assessment: %w", err)
	}

	record.Sequence = seq
	r.log.WithFields(logrus.Fields{
		"record_id": record.ID,
		"mrn":       record.MRN,
		"seq":       seq,
	}).Info("Assessment stored successfully")

	return nil
}

// ListAssessments returns a patient's records ordered by visit date, then insertion
func (r *AssessmentRepository) ListAssessments(ctx context.Context, mrn string) ([]*domain.AssessmentRecord, error) {
	query := `
		SELECT seq, id, mrn, visit_date, weeks_post_op, metrics, notes, created_at
		FROM assessments
		WHERE mrn = $1
		ORDER BY visit_date ASC, seq ASC`

	rows, err := r.db.Query(ctx, query, mrn)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.AssessmentRecord, 0)
	for rows.Next() {
		var rec domain.AssessmentRecord
		var metricsJSON []byte
		if err := rows.Scan(
			&rec.Sequence,
			&rec.ID,
			&rec.MRN,
			&rec.VisitDate,
			&rec.WeeksPostOp,
			&metricsJSON,
			&rec.Notes,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}

		rec.Metrics = make(map[string]domain.MetricValue)
		if len(metricsJSON) > 0 {
			if err := json.Unmarshal(metricsJSON, &rec.Metrics); err != nil {
				return nil, fmt.Errorf("unmarshaling metrics of %s: %w", rec.ID, err)
			}
		}
		rec.VisitDate = rec.VisitDate.UTC()
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}

	return records, nil
}

// Store combines the pgx repositories into a domain.Store.
type Store struct {
	*PatientRepository
	*AssessmentRepository
	db *database.DB
}

// NewStore creates a domain.Store backed by the connection pool.
func NewStore(db *database.DB, logger *logrus.Logger) *Store {
	return &Store{
		PatientRepository:    NewPatientRepository(db.Pool, logger),
		AssessmentRepository: NewAssessmentRepository(db.Pool, logger),
		db:                   db,
	}
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
