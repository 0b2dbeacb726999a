package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/internal/syncer"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("k", query.K))
	response, err := s.searcher.Search(r.Context(), &query)
	if err != nil {
		if errors.Is(err, models.ErrInvalidQuery) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Sync(r.Context())
	if err != nil {
		s.logger.Error("sync failed", zap.Error(err))
		s.respondSyncError(w, report, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchSize int `json:"batch_size"`
	}
	if r.Body != nil {
		// Body is optional; a missing or empty one means the configured batch size.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	report, err := s.engine.Rebuild(r.Context(), req.BatchSize)
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondSyncError(w, report, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

// respondSyncError maps sync engine errors onto status codes. A persistence
// failure still carries a report because the in-memory state did change.
func (s *Server) respondSyncError(w http.ResponseWriter, report *models.SyncReport, err error) {
	switch {
	case errors.Is(err, syncer.ErrSourceUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, syncer.ErrPersistence):
		s.respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.engine.Status()
	resp := map[string]interface{}{
		"ready":          status.Ready,
		"indexed":        status.Indexed,
		"index_type":     status.IndexType,
		"dimensions":     status.Dimensions,
		"snapshot_bytes": status.SnapshotBytes,
		"last_report":    status.LastReport,
	}
	if !status.LastSync.IsZero() {
		resp["last_sync"] = status.LastSync
	}
	if s.catalog != nil {
		if count, err := s.catalog.Count(r.Context()); err == nil {
			resp["catalog_listings"] = count
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "catalog not managed by this server")
		return
	}
	var doc models.Listing
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if doc.Title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	// Index first so a generated ID is assigned before the catalog write.
	if err := s.engine.AddListing(r.Context(), &doc); err != nil {
		if errors.Is(err, syncer.ErrIndexUninitialized) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.catalog.CreateListing(r.Context(), &doc); err != nil {
		s.logger.Error("catalog write failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "indexed"})
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "catalog not managed by this server")
		return
	}
	id := chi.URLParam(r, "id")
	doc, err := s.catalog.GetListing(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "listing not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "catalog not managed by this server")
		return
	}
	id := chi.URLParam(r, "id")
	var doc models.Listing
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc.ID = id
	if err := s.catalog.UpdateListing(r.Context(), &doc); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.engine.UpdateListing(r.Context(), &doc); err != nil {
		if errors.Is(err, syncer.ErrIndexUninitialized) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("re-indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "updated"})
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "catalog not managed by this server")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete listing request", zap.String("id", id))
	if err := s.catalog.DeleteListing(r.Context(), id); err != nil {
		s.logger.Error("catalog delete failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.engine.RemoveListing(r.Context(), id); err != nil {
		if errors.Is(err, syncer.ErrIndexUninitialized) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("index removal failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"ready":  s.engine.Ready(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
