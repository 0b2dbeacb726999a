// Package models defines core data structures for listings, index metadata,
// queries, and search results.
package models

import (
	"strings"
	"time"
)

// Listing is a marketplace listing as enumerated from the listing source.
// The search core treats listings as read-only input; the source system owns them.
type Listing struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	MainCategory  string    `json:"main_category,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	Features      []string  `json:"features,omitempty"`
	Store         string    `json:"store,omitempty"`
	Price         float64   `json:"price,omitempty"`
	AverageRating float64   `json:"average_rating,omitempty"`
	RatingNumber  int       `json:"rating_number,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// CanonicalTime formats t for change detection: UTC, RFC3339 with nanoseconds.
// Stored metadata timestamps and live source timestamps are compared as these
// strings, so both sides must go through this function.
func CanonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ListingMeta is the sidecar metadata record for one indexed listing, keyed by
// vector ID in the persisted metadata file. It carries the denormalized display
// fields plus the timestamps needed for change detection. VectorID is redundant
// with the map key but required for reverse lookup by listing ID.
type ListingMeta struct {
	ListingID       string  `json:"listing_id"`
	VectorID        int64   `json:"vector_id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	MainCategory    string  `json:"main_category,omitempty"`
	Categories      string  `json:"categories,omitempty"`
	Features        string  `json:"features,omitempty"`
	Store           string  `json:"store,omitempty"`
	Price           float64 `json:"price,omitempty"`
	AverageRating   float64 `json:"average_rating,omitempty"`
	RatingNumber    int     `json:"rating_number,omitempty"`
	SourceUpdatedAt string  `json:"source_updated_at"`
	EmbeddedAt      string  `json:"embedded_at"`
}

// MetaForListing builds the metadata record stored alongside the embedding of doc.
func MetaForListing(doc *Listing, vectorID int64, embeddedAt time.Time) *ListingMeta {
	return &ListingMeta{
		ListingID:       doc.ID,
		VectorID:        vectorID,
		Title:           doc.Title,
		Description:     doc.Description,
		MainCategory:    doc.MainCategory,
		Categories:      strings.Join(doc.Categories, ", "),
		Features:        strings.Join(doc.Features, ", "),
		Store:           doc.Store,
		Price:           doc.Price,
		AverageRating:   doc.AverageRating,
		RatingNumber:    doc.RatingNumber,
		SourceUpdatedAt: CanonicalTime(doc.UpdatedAt),
		EmbeddedAt:      CanonicalTime(embeddedAt),
	}
}
