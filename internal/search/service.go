// Package search answers listing queries against the synced vector index.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/embedding"
	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/internal/syncer"
)

// Service embeds queries and runs them through the sync engine's index.
type Service struct {
	engine   *syncer.Engine
	embedder embedding.Embedder
	defaultK int
	maxK     int
	logger   *zap.Logger
}

// NewService creates a search service. defaultK is used when a query does not
// set K; maxK caps the result size.
func NewService(engine *syncer.Engine, embedder embedding.Embedder, defaultK, maxK int, logger *zap.Logger) *Service {
	if defaultK <= 0 {
		defaultK = 10
	}
	if maxK <= 0 {
		maxK = 100
	}
	return &Service{
		engine:   engine,
		embedder: embedder,
		defaultK: defaultK,
		maxK:     maxK,
		logger:   logger,
	}
}

// Search embeds the query text and returns the nearest listings. Hits that
// resolve to the same listing are collapsed onto the highest score. An empty
// or not yet initialized index yields an empty response, not an error.
func (s *Service) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(s.defaultK, s.maxK); err != nil {
		return nil, err
	}

	queryVec, err := s.embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Fetch extra candidates so deduplication can still fill k results.
	candidates := query.K * 2
	if candidates > s.maxK*2 {
		candidates = s.maxK * 2
	}
	hits, err := s.engine.Search(ctx, queryVec, candidates)
	if err != nil {
		return nil, err
	}

	results := dedupe(hits, query.K)
	for i, r := range results {
		r.Rank = i + 1
	}

	s.logger.Debug("Search complete",
		zap.String("query", query.Query),
		zap.Int("k", query.K),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)))

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	}, nil
}

// dedupe collapses hits that share a listing ID, keeping the best-scoring one.
// Hits without metadata have no listing ID to collapse on and pass through as
// degraded results. Input order (score descending) is preserved.
func dedupe(hits []*models.SearchResult, k int) []*models.SearchResult {
	results := make([]*models.SearchResult, 0, k)
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		if hit.ListingID != "" {
			if seen[hit.ListingID] {
				continue
			}
			seen[hit.ListingID] = true
		}
		results = append(results, hit)
		if len(results) == k {
			break
		}
	}
	return results
}
