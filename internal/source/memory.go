package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artisan-point/listingsearch/internal/models"
)

// MemoryCatalog is an in-memory Catalog used in tests and demos.
type MemoryCatalog struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing

	// FailList makes ListAll return this error, simulating an unreachable
	// catalog.
	FailList error
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{listings: make(map[string]*models.Listing)}
}

// CreateListing inserts a listing.
func (m *MemoryCatalog) CreateListing(_ context.Context, doc *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.listings[doc.ID]; exists {
		return fmt.Errorf("listing already exists: %s", doc.ID)
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
	clone := *doc
	m.listings[doc.ID] = &clone
	return nil
}

// GetListing returns a listing by ID.
func (m *MemoryCatalog) GetListing(_ context.Context, id string) (*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing not found: %s", id)
	}
	clone := *doc
	return &clone, nil
}

// UpdateListing replaces an existing listing and bumps its updated_at.
func (m *MemoryCatalog) UpdateListing(_ context.Context, doc *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.listings[doc.ID]
	if !ok {
		return fmt.Errorf("listing not found: %s", doc.ID)
	}
	doc.CreatedAt = existing.CreatedAt
	if doc.UpdatedAt.Equal(existing.UpdatedAt) || doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	clone := *doc
	m.listings[doc.ID] = &clone
	return nil
}

// DeleteListing removes a listing by ID.
func (m *MemoryCatalog) DeleteListing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listings, id)
	return nil
}

// ListAll returns every listing ordered by ID for deterministic iteration.
func (m *MemoryCatalog) ListAll(_ context.Context) ([]*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailList != nil {
		return nil, m.FailList
	}
	docs := make([]*models.Listing, 0, len(m.listings))
	for _, doc := range m.listings {
		clone := *doc
		docs = append(docs, &clone)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Count returns the number of listings.
func (m *MemoryCatalog) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.listings)), nil
}

// Close is a no-op.
func (m *MemoryCatalog) Close() error {
	return nil
}
