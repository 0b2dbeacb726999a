package syncer

import (
	"time"

	"github.com/artisan-point/listingsearch/internal/models"
)

// Changes is the diff between the live catalog and the indexed state.
// New, Updated, and Deleted hold listing IDs; Docs maps every live listing ID
// to its document so callers do not have to re-fetch.
type Changes struct {
	New     []string
	Updated []string
	Deleted []string
	Docs    map[string]*models.Listing
}

// Total returns the number of changed listings.
func (c *Changes) Total() int {
	return len(c.New) + len(c.Updated) + len(c.Deleted)
}

// Ratio returns the change ratio against the indexed count. The denominator is
// clamped to 1 so an empty index yields a finite ratio.
func (c *Changes) Ratio(indexed int) float64 {
	if indexed < 1 {
		indexed = 1
	}
	return float64(c.Total()) / float64(indexed)
}

// DetectChanges diffs the live listings against the indexed metadata.
// A listing counts as updated when its canonical source timestamp differs from
// the one recorded at embed time. A stored timestamp that no longer parses is
// treated as updated so the record gets re-embedded rather than stuck.
func DetectChanges(live []*models.Listing, meta map[int64]*models.ListingMeta) *Changes {
	changes := &Changes{Docs: make(map[string]*models.Listing, len(live))}

	indexed := make(map[string]*models.ListingMeta, len(meta))
	for _, m := range meta {
		indexed[m.ListingID] = m
	}

	for _, doc := range live {
		changes.Docs[doc.ID] = doc
		m, ok := indexed[doc.ID]
		if !ok {
			changes.New = append(changes.New, doc.ID)
			continue
		}
		if _, err := time.Parse(time.RFC3339Nano, m.SourceUpdatedAt); err != nil {
			changes.Updated = append(changes.Updated, doc.ID)
			continue
		}
		if models.CanonicalTime(doc.UpdatedAt) != m.SourceUpdatedAt {
			changes.Updated = append(changes.Updated, doc.ID)
		}
	}

	for id := range indexed {
		if _, ok := changes.Docs[id]; !ok {
			changes.Deleted = append(changes.Deleted, id)
		}
	}

	return changes
}
