package domain

import (
	"context"
)

// PatientStore is the patient lookup capability the engine consumes.
type PatientStore interface {
	CreatePatient(ctx context.Context, patient *Patient) error
	// GetPatient returns ErrNotFound (wrapped) when the MRN is unknown.
	GetPatient(ctx context.Context, mrn string) (*Patient, error)
	ListPatients(ctx context.Context) ([]*Patient, error)
}

// AssessmentStore is the append-only persisted collection of assessment records.
type AssessmentStore interface {
	// AppendAssessment persists a new record. It never overwrites an existing ID.
	AppendAssessment(ctx context.Context, record *AssessmentRecord) error
	// ListAssessments returns a patient's records ordered by visit date, then insertion.
	ListAssessments(ctx context.Context, mrn string) ([]*AssessmentRecord, error)
}

// Store combines both persistence capabilities.
type Store interface {
	PatientStore
	AssessmentStore
	Close() error
}

// ConfigManager exposes the loaded configuration.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetCacheConfig() *CacheConfig
	Validate() error
}
