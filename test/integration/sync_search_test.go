// Package integration exercises the full pipeline: SQLite catalog, sync
// engine, snapshot persistence, and search service together.
package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/embedding"
	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/internal/search"
	"github.com/artisan-point/listingsearch/internal/snapshot"
	"github.com/artisan-point/listingsearch/internal/source"
	"github.com/artisan-point/listingsearch/internal/syncer"
	"github.com/artisan-point/listingsearch/internal/vector"
)

const dims = 32

type stack struct {
	catalog  *source.SQLiteCatalog
	store    *snapshot.Store
	engine   *syncer.Engine
	searcher *search.Service
	embedder embedding.Embedder
}

func newStack(t *testing.T, dbPath, snapDir string) *stack {
	t.Helper()
	catalog, err := source.NewSQLiteCatalog(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	store, err := snapshot.New(snapDir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	idx, err := vector.NewFlatIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewHashEmbedder(dims)
	engine, err := syncer.NewEngine(catalog, emb, idx, store, syncer.Options{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		engine.Close()
		catalog.Close()
	})
	return &stack{
		catalog:  catalog,
		store:    store,
		engine:   engine,
		searcher: search.NewService(engine, emb, 10, 100, zap.NewNop()),
		embedder: emb,
	}
}

func TestIntegration_SyncAndSearch(t *testing.T) {
	dir := t.TempDir()
	s := newStack(t, filepath.Join(dir, "listings.db"), filepath.Join(dir, "index"))
	ctx := context.Background()

	listings := []*models.Listing{
		{
			ID:           "bowl",
			Title:        "Handmade wooden bowl",
			Description:  "Carved from a single block of walnut",
			MainCategory: "Kitchen",
			Store:        "Oak & Ash",
			Price:        42.5,
		},
		{
			ID:          "scarf",
			Title:       "Cotton scarf",
			Description: "Hand woven, naturally dyed",
			Store:       "Thread & Loom",
			Price:       18,
		},
		{
			ID:          "holder",
			Title:       "Brass candle holder",
			Description: "Cast and polished by hand",
			Store:       "Luma",
			Price:       27,
		},
	}
	for _, doc := range listings {
		if err := s.catalog.CreateListing(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	report, err := s.engine.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !report.FullRebuild || report.Indexed != 3 {
		t.Fatalf("first sync report = %+v", report)
	}

	resp, err := s.searcher.Search(ctx, &models.SearchQuery{
		Query: "Handmade wooden bowl Carved from a single block of walnut Kitchen Oak & Ash",
		K:     3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Fatalf("Total = %d", resp.Total)
	}
	if resp.Results[0].ListingID != "bowl" {
		t.Errorf("top hit = %s, want bowl", resp.Results[0].ListingID)
	}
	if resp.Results[0].Meta.Store != "Oak & Ash" {
		t.Errorf("top meta = %+v", resp.Results[0].Meta)
	}

	// Delete one listing and sync again; it must disappear from results.
	if err := s.catalog.DeleteListing(ctx, "scarf"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.engine.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	resp, err = s.searcher.Search(ctx, &models.SearchQuery{Query: "Cotton scarf", K: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.ListingID == "scarf" {
			t.Error("deleted listing still in results")
		}
	}
	if s.engine.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.engine.Count())
	}
}

func TestIntegration_SnapshotSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "listings.db")
	snapDir := filepath.Join(dir, "index")
	ctx := context.Background()

	s1 := newStack(t, dbPath, snapDir)
	doc := &models.Listing{ID: "bowl", Title: "Handmade wooden bowl", Store: "Oak & Ash"}
	if err := s1.catalog.CreateListing(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if _, err := s1.engine.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	s1.engine.Close()
	s1.catalog.Close()

	// Fresh stack over the same directories restores without syncing.
	s2 := newStack(t, dbPath, snapDir)
	if !s2.engine.Ready() {
		t.Fatal("engine should restore ready from snapshot")
	}
	resp, err := s2.searcher.Search(ctx, &models.SearchQuery{Query: "Handmade wooden bowl Oak & Ash", K: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ListingID != "bowl" {
		t.Errorf("restored search = %+v", resp)
	}
}

func TestIntegration_UpdateFlowsThroughSync(t *testing.T) {
	dir := t.TempDir()
	s := newStack(t, filepath.Join(dir, "listings.db"), filepath.Join(dir, "index"))
	ctx := context.Background()

	// Enough listings that a single update stays under the rebuild threshold.
	for i := 0; i < 40; i++ {
		doc := &models.Listing{
			ID:    fmt.Sprintf("listing-%02d", i),
			Title: fmt.Sprintf("Listing number %d", i),
		}
		if err := s.catalog.CreateListing(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.engine.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	all, err := s.catalog.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	target := all[7]
	target.Title = "Hand thrown ceramic vase"
	if err := s.catalog.UpdateListing(ctx, target); err != nil {
		t.Fatal(err)
	}

	report, err := s.engine.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.FullRebuild {
		t.Error("single update out of 40 should be incremental")
	}
	if report.Updated != 1 {
		t.Errorf("Updated = %d, want 1", report.Updated)
	}

	resp, err := s.searcher.Search(ctx, &models.SearchQuery{Query: "Hand thrown ceramic vase", K: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ListingID != target.ID {
		t.Errorf("search after update = %+v", resp)
	}
}
