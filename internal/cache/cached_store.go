package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/acl-rts-tracker/internal/domain"
)

// BreakerConfig represents circuit breaker configuration
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerConfigFrom reads breaker settings from the cache configuration, with defaults.
func BreakerConfigFrom(cfg domain.CacheConfig) BreakerConfig {
	bc := BreakerConfig{
		MaxRequests:      cfg.BreakerMaxRequests,
		Interval:         cfg.BreakerInterval,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: cfg.BreakerFailureThreshold,
	}
	if bc.MaxRequests == 0 {
		bc.MaxRequests = 3
	}
	if bc.Interval == 0 {
		bc.Interval = 30 * time.Second
	}
	if bc.Timeout == 0 {
		bc.Timeout = 60 * time.Second
	}
	if bc.FailureThreshold == 0 {
		bc.FailureThreshold = 5
	}
	return bc
}

// Stats are cache counters.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// CachedPatientStore puts a PatientCache in front of a domain.Store. Cache failures never fail a
// request: they are logged and the store is used instead. A circuit breaker stops calling a
// failing cache until it recovers. Assessments pass straight through.
type CachedPatientStore struct {
	domain.Store

	cache   PatientCache
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

// NewCachedPatientStore wraps store with cache.
func NewCachedPatientStore(store domain.Store, cache PatientCache, cfg BreakerConfig, logger *logrus.Logger) *CachedPatientStore {
	s := &CachedPatientStore{
		Store:  store,
		cache:  cache,
		logger: logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "patient-cache",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return s
}

// GetPatient serves from the cache when possible and fills it on a miss.
func (s *CachedPatientStore) GetPatient(ctx context.Context, mrn string) (*domain.Patient, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		p, ok, err := s.cache.Get(ctx, mrn)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return p, nil
	})
	if err != nil {
		s.errors.Add(1)
		s.logger.WithError(err).WithField("mrn", mrn).Debug("Patient cache unavailable, reading store")
	} else if p, ok := res.(*domain.Patient); ok && p != nil {
		s.hits.Add(1)
		return p, nil
	}
	s.misses.Add(1)

	patient, err := s.Store.GetPatient(ctx, mrn)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, patient)
	return patient, nil
}

// CreatePatient stores the patient and warms the cache.
func (s *CachedPatientStore) CreatePatient(ctx context.Context, patient *domain.Patient) error {
	if err := s.Store.CreatePatient(ctx, patient); err != nil {
		return err
	}
	s.fill(ctx, patient)
	return nil
}

func (s *CachedPatientStore) fill(ctx context.Context, patient *domain.Patient) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.cache.Set(ctx, patient)
	})
	if err != nil {
		s.errors.Add(1)
		s.logger.WithError(err).WithField("mrn", patient.MRN).Debug("Failed to cache patient")
	}
}

// Stats returns the cache counters.
func (s *CachedPatientStore) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Errors: s.errors.Load(),
	}
}

// BreakerState returns the circuit breaker state name.
func (s *CachedPatientStore) BreakerState() string {
	return s.breaker.State().String()
}

// Close closes the cache and the underlying store.
func (s *CachedPatientStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.Store.Close(); err != nil {
		return err
	}
	if cacheErr != nil {
		return fmt.Errorf("closing cache: %w", cacheErr)
	}
	return nil
}
