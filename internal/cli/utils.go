// Package cli provides output helpers for the listingsearch command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat maps a flag value onto a format, erroring on unknown
// values.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch s {
	case "text", "":
		return OutputText, nil
	case "compact":
		return OutputCompact, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms for %q\n\n", response.Total, response.QueryTime, response.Query)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		if result.Meta == nil {
			fmt.Fprintf(w, "Vector ID: %d (metadata missing)\n\n", result.VectorID)
			continue
		}
		fmt.Fprintf(w, "ID: %s\n", result.ListingID)
		fmt.Fprintf(w, "Title: %s\n", result.Meta.Title)
		if result.Meta.Store != "" {
			fmt.Fprintf(w, "Store: %s\n", result.Meta.Store)
		}
		if result.Meta.Price > 0 {
			fmt.Fprintf(w, "Price: %.2f\n", result.Meta.Price)
		}
		if result.Meta.Description != "" {
			fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Meta.Description, 200))
		}
		fmt.Fprintln(w)
	}
}

func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for _, result := range response.Results {
		title := ""
		if result.Meta != nil {
			title = result.Meta.Title
		}
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", result.Rank, result.Score, result.ListingID, title)
	}
}

// WriteSyncReport writes a sync report to w as text or JSON.
func WriteSyncReport(w io.Writer, report *models.SyncReport, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	strategy := "incremental"
	if report.FullRebuild {
		strategy = "full rebuild"
	}
	fmt.Fprintf(w, "Sync complete (%s) in %dms\n", strategy, report.DurationMs)
	fmt.Fprintf(w, "  indexed: %d\n", report.Indexed)
	fmt.Fprintf(w, "  added: %d, updated: %d, removed: %d, skipped: %d\n",
		report.Added, report.Updated, report.Removed, report.Skipped)
	if report.ChangeRatio > 0 {
		fmt.Fprintf(w, "  change ratio: %.4f\n", report.ChangeRatio)
	}
	return nil
}
