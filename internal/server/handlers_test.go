package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/config"
	"github.com/artisan-point/listingsearch/internal/embedding"
	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/internal/search"
	"github.com/artisan-point/listingsearch/internal/snapshot"
	"github.com/artisan-point/listingsearch/internal/source"
	"github.com/artisan-point/listingsearch/internal/syncer"
	"github.com/artisan-point/listingsearch/internal/vector"
)

const testDims = 16

func newTestServer(t *testing.T, docs []*models.Listing) (*Server, *source.MemoryCatalog) {
	t.Helper()
	ctx := context.Background()
	cat := source.NewMemoryCatalog()
	for _, d := range docs {
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = time.Now()
		}
		if err := cat.CreateListing(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	store, err := snapshot.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := vector.NewFlatIndex(testDims)
	emb := embedding.NewHashEmbedder(testDims)
	eng, err := syncer.NewEngine(cat, emb, idx, store, syncer.Options{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })
	if _, err := eng.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	svc := search.NewService(eng, emb, 10, 100, zap.NewNop())
	cfg := &config.ServerConfig{Host: "localhost", Port: 0}
	return NewServer(svc, eng, cat, cfg, zap.NewNop()), cat
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func sampleListings() []*models.Listing {
	return []*models.Listing{
		{ID: "bowl", Title: "Handmade wooden bowl", Store: "Oak & Ash", Price: 42.5},
		{ID: "scarf", Title: "Cotton scarf", Store: "Thread & Loom", Price: 18},
		{ID: "holder", Title: "Brass candle holder", Store: "Luma", Price: 27},
	}
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServer(t, sampleListings())

	w := doRequest(t, srv, http.MethodPost, "/api/v1/search",
		models.SearchQuery{Query: "Handmade wooden bowl Oak & Ash", K: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("Total = %d", resp.Total)
	}
	if resp.Results[0].ListingID != "bowl" {
		t.Errorf("top = %s", resp.Results[0].ListingID)
	}
}

func TestHandleSearch_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString("{bad"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}

	w2 := doRequest(t, srv, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: ""})
	if w2.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", w2.Code)
	}
}

func TestHandleSync(t *testing.T) {
	srv, cat := newTestServer(t, sampleListings())

	if err := cat.DeleteListing(context.Background(), "scarf"); err != nil {
		t.Fatal(err)
	}
	w := doRequest(t, srv, http.MethodPost, "/api/v1/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var report models.SyncReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", report.Indexed)
	}
}

func TestHandleSync_SourceDown(t *testing.T) {
	srv, cat := newTestServer(t, sampleListings())

	cat.FailList = context.DeadlineExceeded
	w := doRequest(t, srv, http.MethodPost, "/api/v1/sync", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHandleRebuild(t *testing.T) {
	srv, _ := newTestServer(t, sampleListings())

	w := doRequest(t, srv, http.MethodPost, "/api/v1/rebuild", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var report models.SyncReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if !report.FullRebuild || report.Indexed != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, sampleListings())

	w := doRequest(t, srv, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["ready"] != true {
		t.Error("expected ready true")
	}
	if resp["indexed"].(float64) != 3 {
		t.Errorf("indexed = %v", resp["indexed"])
	}
	if resp["catalog_listings"].(float64) != 3 {
		t.Errorf("catalog_listings = %v", resp["catalog_listings"])
	}
}

func TestListingLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, sampleListings())

	w := doRequest(t, srv, http.MethodPost, "/api/v1/listings",
		models.Listing{Title: "Ceramic mug", Store: "Kiln House", Price: 14})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	id := created["id"]
	if id == "" {
		t.Fatal("expected generated listing ID")
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/listings/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodPut, "/api/v1/listings/"+id,
		models.Listing{Title: "Large ceramic mug", Store: "Kiln House", Price: 16})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doRequest(t, srv, http.MethodDelete, "/api/v1/listings/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doRequest(t, srv, http.MethodGet, "/api/v1/listings/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", w.Code)
	}
}

func TestCreateListing_MissingTitle(t *testing.T) {
	srv, _ := newTestServer(t, sampleListings())

	w := doRequest(t, srv, http.MethodPost, "/api/v1/listings", models.Listing{Store: "Luma"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, sampleListings())

	w := doRequest(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" || resp["ready"] != true {
		t.Errorf("resp = %v", resp)
	}
}
