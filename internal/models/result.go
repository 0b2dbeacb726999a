package models

// SearchResult is a single vector search hit with its metadata record.
// Meta is nil for a degraded hit: the index returned a vector ID for which no
// metadata record exists (inconsistent state); the hit is still reported with
// its score and raw vector ID rather than silently dropped.
type SearchResult struct {
	ListingID string       `json:"listing_id,omitempty"`
	VectorID  int64        `json:"vector_id"`
	Score     float64      `json:"score"`
	Meta      *ListingMeta `json:"meta,omitempty"`
	Rank      int          `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// SyncReport summarizes one sync or rebuild pass: what strategy ran, how many
// records were touched, and how many per-item failures were skipped.
type SyncReport struct {
	FullRebuild bool    `json:"full_rebuild"`
	Indexed     int     `json:"indexed"`
	Added       int     `json:"added"`
	Updated     int     `json:"updated"`
	Removed     int     `json:"removed"`
	Skipped     int     `json:"skipped"`
	ChangeRatio float64 `json:"change_ratio"`
	DurationMs  int64   `json:"duration_ms"`
}
