package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/artisan-point/listingsearch/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "wooden bowl",
		Total:     2,
		QueryTime: 3,
		Results: []*models.SearchResult{
			{
				ListingID: "bowl",
				VectorID:  11,
				Score:     0.91,
				Rank:      1,
				Meta: &models.ListingMeta{
					ListingID:   "bowl",
					Title:       "Handmade wooden bowl",
					Store:       "Oak & Ash",
					Price:       42.5,
					Description: "Carved from walnut",
				},
			},
			{VectorID: 99, Score: 0.42, Rank: 2}, // degraded
		},
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 2 results", "Handmade wooden bowl", "Oak & Ash", "metadata missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 2 || decoded.Results[0].ListingID != "bowl" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchResults_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "bowl") {
		t.Errorf("line = %q", lines[0])
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat(""); err != nil || f != OutputText {
		t.Errorf("empty: %v %v", f, err)
	}
	if f, err := ParseOutputFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteSyncReport(t *testing.T) {
	report := &models.SyncReport{
		FullRebuild: true,
		Indexed:     120,
		Added:       120,
		DurationMs:  250,
	}
	var buf bytes.Buffer
	if err := WriteSyncReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "full rebuild") {
		t.Errorf("output = %s", buf.String())
	}

	buf.Reset()
	if err := WriteSyncReport(&buf, report, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SyncReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Indexed != 120 {
		t.Errorf("decoded = %+v", decoded)
	}
}
