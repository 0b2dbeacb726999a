// Package snapshot persists the vector index and its sidecar metadata as an
// atomic pair on local disk. A snapshot is only considered valid when both
// files exist and decode; anything else is treated as "no snapshot" so the
// engine falls back to a cold start instead of serving a half-written state.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/internal/vector"
)

// Store reads and writes index snapshots under a single data directory.
type Store struct {
	indexPath string
	metaPath  string
	logger    *zap.Logger
}

// New creates a snapshot store rooted at dir. The directory is created if it
// does not exist.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Store{
		indexPath: filepath.Join(dir, "listings.index"),
		metaPath:  filepath.Join(dir, "listings.meta.json"),
		logger:    logger,
	}, nil
}

// IndexPath returns the path of the serialized vector index.
func (s *Store) IndexPath() string {
	return s.indexPath
}

// MetaPath returns the path of the metadata JSON file.
func (s *Store) MetaPath() string {
	return s.metaPath
}

// Save writes the index and metadata to disk. The metadata file is written to
// a temporary file and renamed into place so readers never observe a partial
// write. The index is written first: if it fails, the previous metadata file
// stays untouched and the pair remains consistent.
func (s *Store) Save(idx vector.Index, meta map[int64]*models.ListingMeta) error {
	if err := idx.Save(s.indexPath); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	encoded := make(map[string]*models.ListingMeta, len(meta))
	for id, m := range meta {
		encoded[strconv.FormatInt(id, 10)] = m
	}
	data, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tmpPath := s.metaPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmpPath, s.metaPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace metadata: %w", err)
	}

	s.logger.Debug("Snapshot saved",
		zap.Int("vectors", idx.Size()),
		zap.Int("metadata_entries", len(meta)))
	return nil
}

// Load restores the snapshot pair into idx and returns the metadata map.
// It returns (nil, false, nil) when no usable snapshot exists: one or both
// files missing, or either file failing to decode. Corrupt files are logged
// and ignored rather than surfaced as errors, since the engine can always
// rebuild from the source.
func (s *Store) Load(idx vector.Index) (map[int64]*models.ListingMeta, bool, error) {
	if !fileExists(s.indexPath) || !fileExists(s.metaPath) {
		return nil, false, nil
	}

	data, err := os.ReadFile(s.metaPath)
	if err != nil {
		s.logger.Warn("Snapshot metadata is unreadable, ignoring snapshot",
			zap.String("path", s.metaPath),
			zap.Error(err))
		return nil, false, nil
	}
	var encoded map[string]*models.ListingMeta
	if err := json.Unmarshal(data, &encoded); err != nil {
		s.logger.Warn("Snapshot metadata is corrupt, ignoring snapshot",
			zap.String("path", s.metaPath),
			zap.Error(err))
		return nil, false, nil
	}
	meta := make(map[int64]*models.ListingMeta, len(encoded))
	for key, m := range encoded {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.logger.Warn("Snapshot metadata has invalid vector ID, ignoring snapshot",
				zap.String("key", key))
			return nil, false, nil
		}
		meta[id] = m
	}

	if err := idx.Load(s.indexPath); err != nil {
		s.logger.Warn("Snapshot index failed to load, ignoring snapshot",
			zap.String("path", s.indexPath),
			zap.Error(err))
		return nil, false, nil
	}

	s.logger.Info("Snapshot loaded",
		zap.Int("vectors", idx.Size()),
		zap.Int("metadata_entries", len(meta)))
	return meta, true, nil
}

// Remove deletes both snapshot files. Missing files are not an error.
func (s *Store) Remove() error {
	for _, path := range []string{s.indexPath, s.metaPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
