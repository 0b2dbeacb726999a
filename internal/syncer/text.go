package syncer

import (
	"strings"

	"github.com/artisan-point/listingsearch/internal/models"
)

// CompositeText builds the text that gets embedded for a listing. Title,
// description, features, categories, and store name are concatenated; empty
// fields are skipped so sparse listings still embed cleanly.
func CompositeText(doc *models.Listing) string {
	parts := make([]string, 0, 6)
	if doc.Title != "" {
		parts = append(parts, doc.Title)
	}
	if doc.Description != "" {
		parts = append(parts, doc.Description)
	}
	if len(doc.Features) > 0 {
		parts = append(parts, strings.Join(doc.Features, " "))
	}
	if doc.MainCategory != "" {
		parts = append(parts, doc.MainCategory)
	}
	if len(doc.Categories) > 0 {
		parts = append(parts, strings.Join(doc.Categories, " "))
	}
	if doc.Store != "" {
		parts = append(parts, doc.Store)
	}
	return strings.Join(parts, " ")
}
