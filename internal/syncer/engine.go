// Package syncer keeps the vector index in step with the listing catalog. It
// decides between incremental sync and full rebuild, owns the in-memory
// metadata map, and persists the index/metadata pair after every mutation.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artisan-point/listingsearch/internal/embedding"
	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/internal/snapshot"
	"github.com/artisan-point/listingsearch/internal/source"
	"github.com/artisan-point/listingsearch/internal/vecid"
	"github.com/artisan-point/listingsearch/internal/vector"
)

var (
	// ErrSourceUnavailable wraps failures to enumerate the listing catalog.
	ErrSourceUnavailable = errors.New("listing source unavailable")
	// ErrPersistence wraps snapshot write failures. The in-memory state is
	// still valid when this is returned.
	ErrPersistence = errors.New("snapshot persistence failed")
	// ErrIndexUninitialized is returned by mutating operations before the
	// first successful sync or snapshot load.
	ErrIndexUninitialized = errors.New("index not initialized")
)

// Options tunes the engine. Zero values fall back to the defaults below.
type Options struct {
	// RebuildThreshold is the change ratio above which Sync rebuilds from
	// scratch instead of patching incrementally.
	RebuildThreshold float64
	// BatchSize is how many listings are embedded per batch during rebuild.
	BatchSize int
	// EmbedWorkers bounds concurrent embedding batches during rebuild.
	EmbedWorkers int
}

const (
	defaultRebuildThreshold = 0.05
	defaultBatchSize        = 64
	defaultEmbedWorkers     = 4
)

func (o *Options) applyDefaults() {
	if o.RebuildThreshold <= 0 {
		o.RebuildThreshold = defaultRebuildThreshold
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.EmbedWorkers <= 0 {
		o.EmbedWorkers = defaultEmbedWorkers
	}
}

// Status is a point-in-time view of the engine for the status endpoint.
type Status struct {
	Ready         bool               `json:"ready"`
	Indexed       int                `json:"indexed"`
	IndexType     string             `json:"index_type"`
	Dimensions    int                `json:"dimensions"`
	SnapshotBytes int64              `json:"snapshot_bytes"`
	LastSync      time.Time          `json:"last_sync,omitempty"`
	LastReport    *models.SyncReport `json:"last_report,omitempty"`
}

// Engine synchronizes the vector index with the listing catalog.
//
// The index and metadata map are mutated together under one write lock so
// searches never observe a vector without its metadata counterpart (degraded
// hits can still happen after a crash between snapshot and source changes).
type Engine struct {
	catalog  source.Source
	embedder embedding.Embedder
	store    *snapshot.Store
	logger   *zap.Logger
	opts     Options

	indexType  string
	dimensions int

	mu         sync.RWMutex
	index      vector.Index
	meta       map[int64]*models.ListingMeta
	byListing  map[string]int64
	ready      bool
	lastSync   time.Time
	lastReport *models.SyncReport
}

// NewEngine creates an engine and restores the last snapshot if one exists.
// Without a snapshot the engine starts cold and the first Sync rebuilds.
func NewEngine(
	catalog source.Source,
	embedder embedding.Embedder,
	index vector.Index,
	store *snapshot.Store,
	opts Options,
	logger *zap.Logger,
) (*Engine, error) {
	opts.applyDefaults()

	e := &Engine{
		catalog:    catalog,
		embedder:   embedder,
		store:      store,
		logger:     logger,
		opts:       opts,
		indexType:  index.Type(),
		dimensions: embedder.Dimensions(),
		index:      index,
		meta:       make(map[int64]*models.ListingMeta),
		byListing:  make(map[string]int64),
	}

	meta, ok, err := store.Load(index)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if ok {
		e.meta = meta
		e.rebuildListingMap()
		e.ready = true
		logger.Info("Engine restored from snapshot", zap.Int("indexed", len(meta)))
	} else {
		logger.Info("No snapshot found, starting cold")
	}
	return e, nil
}

// rebuildListingMap recomputes the listing ID to vector ID reverse map.
// Callers hold the write lock.
func (e *Engine) rebuildListingMap() {
	e.byListing = make(map[string]int64, len(e.meta))
	for id, m := range e.meta {
		e.byListing[m.ListingID] = id
	}
}

// Ready reports whether the engine has an initialized index.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Count returns the number of indexed listings.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.meta)
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	diskBytes, _ := e.store.DiskUsage()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		Ready:         e.ready,
		Indexed:       len(e.meta),
		IndexType:     e.indexType,
		Dimensions:    e.dimensions,
		SnapshotBytes: diskBytes,
		LastSync:      e.lastSync,
		LastReport:    e.lastReport,
	}
}

// Search runs a k-NN query against the current index and resolves metadata.
// An uninitialized or empty index yields an empty result, not an error.
func (e *Engine) Search(ctx context.Context, query []float32, k int) ([]*models.SearchResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.ready || e.index.Size() == 0 {
		return nil, nil
	}
	hits, err := e.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		r := &models.SearchResult{VectorID: hit.ID, Score: hit.Score}
		if m, ok := e.meta[hit.ID]; ok {
			r.ListingID = m.ListingID
			r.Meta = m
		}
		results = append(results, r)
	}
	return results, nil
}

// Sync diffs the catalog against the indexed state and applies the cheaper of
// the two strategies: incremental patching when the change ratio is at or
// below the rebuild threshold, full rebuild otherwise. An empty or
// uninitialized index always rebuilds.
func (e *Engine) Sync(ctx context.Context) (*models.SyncReport, error) {
	start := time.Now()

	live, err := e.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	e.mu.RLock()
	indexed := len(e.meta)
	metaCopy := make(map[int64]*models.ListingMeta, indexed)
	for id, m := range e.meta {
		metaCopy[id] = m
	}
	ready := e.ready
	e.mu.RUnlock()

	changes := DetectChanges(live, metaCopy)
	ratio := changes.Ratio(indexed)

	if !ready || indexed == 0 || ratio > e.opts.RebuildThreshold {
		e.logger.Info("Change ratio above threshold, rebuilding",
			zap.Float64("change_ratio", ratio),
			zap.Float64("threshold", e.opts.RebuildThreshold),
			zap.Int("changed", changes.Total()),
			zap.Int("indexed", indexed))
		report, err := e.rebuildFrom(ctx, live, start)
		if report != nil {
			report.ChangeRatio = ratio
		}
		return report, err
	}

	if changes.Total() == 0 {
		e.logger.Debug("Catalog unchanged, nothing to sync")
		report := &models.SyncReport{Indexed: indexed, DurationMs: time.Since(start).Milliseconds()}
		e.recordSync(report)
		return report, nil
	}

	return e.incremental(ctx, changes, ratio, start)
}

// Rebuild re-embeds the whole catalog into a fresh index and swaps it in.
// A positive batchSize overrides the configured embedding batch size for this
// run only.
func (e *Engine) Rebuild(ctx context.Context, batchSize int) (*models.SyncReport, error) {
	start := time.Now()
	live, err := e.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if batchSize <= 0 {
		batchSize = e.opts.BatchSize
	}
	return e.rebuildWith(ctx, live, batchSize, start)
}

func (e *Engine) rebuildFrom(ctx context.Context, live []*models.Listing, start time.Time) (*models.SyncReport, error) {
	return e.rebuildWith(ctx, live, e.opts.BatchSize, start)
}

func (e *Engine) rebuildWith(ctx context.Context, live []*models.Listing, batchSize int, start time.Time) (*models.SyncReport, error) {
	newIndex, err := vector.New(e.indexType, e.dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	newMeta := make(map[int64]*models.ListingMeta, len(live))
	embeddedAt := time.Now()
	skipped := 0

	batches := make([]*embedResult, 0, len(live)/batchSize+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.EmbedWorkers)

	for base := 0; base < len(live); base += batchSize {
		end := base + batchSize
		if end > len(live) {
			end = len(live)
		}
		docs := live[base:end]
		b := &embedResult{}
		batches = append(batches, b)
		g.Go(func() error {
			return e.embedBatch(gctx, docs, b)
		})
	}
	if err := g.Wait(); err != nil {
		newIndex.Close()
		return nil, fmt.Errorf("failed to embed listings: %w", err)
	}

	for _, b := range batches {
		skipped += b.skipped
		if len(b.ids) == 0 {
			continue
		}
		if err := newIndex.Add(ctx, b.ids, b.vectors); err != nil {
			newIndex.Close()
			return nil, fmt.Errorf("failed to index vectors: %w", err)
		}
		for i, doc := range b.docs {
			newMeta[b.ids[i]] = models.MetaForListing(doc, b.ids[i], embeddedAt)
		}
	}

	e.mu.Lock()
	old := e.index
	e.index = newIndex
	e.meta = newMeta
	e.rebuildListingMap()
	e.ready = true
	persistErr := e.store.Save(e.index, e.meta)
	report := &models.SyncReport{
		FullRebuild: true,
		Indexed:     len(e.meta),
		Added:       len(e.meta),
		Skipped:     skipped,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	e.lastSync = time.Now()
	e.lastReport = report
	e.mu.Unlock()

	if old != nil && old != newIndex {
		old.Close()
	}

	e.logger.Info("Rebuild complete",
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", skipped),
		zap.Int64("duration_ms", report.DurationMs))

	if persistErr != nil {
		// The new state stays live; only the snapshot is stale.
		return report, fmt.Errorf("%w: %v", ErrPersistence, persistErr)
	}
	return report, nil
}

// embedResult collects one batch worth of embeddings plus the listings that
// survived embedding, in matching order.
type embedResult struct {
	ids     []int64
	vectors [][]float32
	docs    []*models.Listing
	skipped int
}

// embedBatch embeds a slice of listings into out. The whole batch is tried
// first; on failure each listing is embedded alone so one bad document does
// not sink the rest, and the failures are counted as skipped.
func (e *Engine) embedBatch(ctx context.Context, docs []*models.Listing, out *embedResult) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = CompositeText(doc)
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		vector.NormalizeBatch(vectors)
		out.vectors = vectors
		out.docs = docs
		out.ids = make([]int64, len(docs))
		for i, doc := range docs {
			out.ids[i] = vecid.VectorID(doc.ID)
		}
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	for i, doc := range docs {
		v, err := e.embedder.Embed(ctx, texts[i])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("Skipping listing, embedding failed",
				zap.String("listing_id", doc.ID),
				zap.Error(err))
			out.skipped++
			continue
		}
		vector.Normalize(v)
		out.ids = append(out.ids, vecid.VectorID(doc.ID))
		out.vectors = append(out.vectors, v)
		out.docs = append(out.docs, doc)
	}
	return nil
}

// incremental applies a small diff in place: deleted and updated vectors are
// removed, then new and updated listings are embedded and re-added.
func (e *Engine) incremental(ctx context.Context, changes *Changes, ratio float64, start time.Time) (*models.SyncReport, error) {
	embeddedAt := time.Now()
	report := &models.SyncReport{ChangeRatio: ratio}

	type addition struct {
		doc *models.Listing
		id  int64
		vec []float32
	}
	additions := make([]addition, 0, len(changes.New)+len(changes.Updated))
	for _, listingID := range append(append([]string{}, changes.New...), changes.Updated...) {
		doc := changes.Docs[listingID]
		v, err := e.embedder.Embed(ctx, CompositeText(doc))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("Skipping listing, embedding failed",
				zap.String("listing_id", listingID),
				zap.Error(err))
			report.Skipped++
			continue
		}
		vector.Normalize(v)
		additions = append(additions, addition{doc: doc, id: vecid.VectorID(doc.ID), vec: v})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var removeIDs []int64
	for _, listingID := range changes.Deleted {
		if id, ok := e.byListing[listingID]; ok {
			removeIDs = append(removeIDs, id)
			delete(e.meta, id)
			delete(e.byListing, listingID)
			report.Removed++
		}
	}
	// Updated listings are remove-then-add so a stale vector never lingers
	// under the same ID.
	for _, listingID := range changes.Updated {
		if id, ok := e.byListing[listingID]; ok {
			removeIDs = append(removeIDs, id)
			delete(e.meta, id)
			delete(e.byListing, listingID)
		}
	}
	if len(removeIDs) > 0 {
		if err := e.index.Remove(ctx, removeIDs); err != nil {
			return nil, fmt.Errorf("failed to remove vectors: %w", err)
		}
	}

	newSet := make(map[string]bool, len(changes.New))
	for _, id := range changes.New {
		newSet[id] = true
	}
	for _, add := range additions {
		if err := e.index.Add(ctx, []int64{add.id}, [][]float32{add.vec}); err != nil {
			e.logger.Warn("Skipping listing, index add failed",
				zap.String("listing_id", add.doc.ID),
				zap.Error(err))
			report.Skipped++
			continue
		}
		e.meta[add.id] = models.MetaForListing(add.doc, add.id, embeddedAt)
		e.byListing[add.doc.ID] = add.id
		if newSet[add.doc.ID] {
			report.Added++
		} else {
			report.Updated++
		}
	}

	report.Indexed = len(e.meta)
	report.DurationMs = time.Since(start).Milliseconds()
	e.lastSync = time.Now()
	e.lastReport = report

	e.logger.Info("Incremental sync complete",
		zap.Int("added", report.Added),
		zap.Int("updated", report.Updated),
		zap.Int("removed", report.Removed),
		zap.Int("skipped", report.Skipped),
		zap.Float64("change_ratio", ratio))

	if err := e.store.Save(e.index, e.meta); err != nil {
		return report, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return report, nil
}

func (e *Engine) recordSync(report *models.SyncReport) {
	e.mu.Lock()
	e.lastSync = time.Now()
	e.lastReport = report
	e.mu.Unlock()
}

// AddListing embeds and indexes a single listing without a full sync pass.
// A listing without an ID gets a generated one, returned via the document.
func (e *Engine) AddListing(ctx context.Context, doc *models.Listing) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	return e.upsert(ctx, doc)
}

// UpdateListing re-embeds an already indexed listing. The old vector is
// removed before the new one is added.
func (e *Engine) UpdateListing(ctx context.Context, doc *models.Listing) error {
	if doc.ID == "" {
		return errors.New("listing ID is required")
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	return e.upsert(ctx, doc)
}

func (e *Engine) upsert(ctx context.Context, doc *models.Listing) error {
	if !e.Ready() {
		return ErrIndexUninitialized
	}

	v, err := e.embedder.Embed(ctx, CompositeText(doc))
	if err != nil {
		return fmt.Errorf("failed to embed listing: %w", err)
	}
	vector.Normalize(v)
	id := vecid.VectorID(doc.ID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if oldID, ok := e.byListing[doc.ID]; ok {
		if err := e.index.Remove(ctx, []int64{oldID}); err != nil {
			return fmt.Errorf("failed to remove old vector: %w", err)
		}
		delete(e.meta, oldID)
	}
	if err := e.index.Add(ctx, []int64{id}, [][]float32{v}); err != nil {
		return fmt.Errorf("failed to index vector: %w", err)
	}
	e.meta[id] = models.MetaForListing(doc, id, time.Now())
	e.byListing[doc.ID] = id

	if err := e.store.Save(e.index, e.meta); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// RemoveListing drops a listing from the index. Removing an unknown listing is
// a no-op.
func (e *Engine) RemoveListing(ctx context.Context, listingID string) error {
	if !e.Ready() {
		return ErrIndexUninitialized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.byListing[listingID]
	if !ok {
		return nil
	}
	if err := e.index.Remove(ctx, []int64{id}); err != nil {
		return fmt.Errorf("failed to remove vector: %w", err)
	}
	delete(e.meta, id)
	delete(e.byListing, listingID)

	if err := e.store.Save(e.index, e.meta); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Close closes the underlying index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index != nil {
		return e.index.Close()
	}
	return nil
}
