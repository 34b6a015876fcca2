// Package cache keeps patient lookups close to the engine. Patients are immutable once created,
// so entries never go stale; assessments and phase results are never cached.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/acl-rts-tracker/internal/domain"
)

// PatientCache stores patients by MRN.
type PatientCache interface {
	// Get returns the cached patient and whether it was found.
	Get(ctx context.Context, mrn string) (*domain.Patient, bool, error)
	Set(ctx context.Context, patient *domain.Patient) error
	Close() error
}

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, domain.Patient]
}

// NewMemoryCache creates a memory cache holding at most size patients for ttl.
// A non-positive size defaults to 1000 entries; a zero ttl disables expiry.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1000
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, domain.Patient](size, nil, ttl),
	}
}

// Get implements PatientCache.
func (c *MemoryCache) Get(_ context.Context, mrn string) (*domain.Patient, bool, error) {
	p, ok := c.lru.Get(mrn)
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

// Set implements PatientCache.
func (c *MemoryCache) Set(_ context.Context, patient *domain.Patient) error {
	c.lru.Add(patient.MRN, *patient)
	return nil
}

// Len returns the number of cached patients.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Close implements PatientCache.
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
