package models

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery marks search requests rejected before execution. Callers
// can map it to a client error with errors.Is.
var ErrInvalidQuery = errors.New("invalid search query")

// SearchQuery is a vector search request.
type SearchQuery struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate checks the query and normalizes K against the given bounds.
// Returns an error wrapping ErrInvalidQuery for an empty query string.
func (q *SearchQuery) Validate(defaultK, maxK int) error {
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if q.K <= 0 {
		q.K = defaultK
	}
	if q.K > maxK {
		q.K = maxK
	}
	return nil
}
