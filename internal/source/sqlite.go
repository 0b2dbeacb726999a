package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/artisan-point/listingsearch/internal/models"
)

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		main_category TEXT,
		categories TEXT,
		features TEXT,
		store TEXT,
		price REAL,
		average_rating REAL,
		rating_number INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_listings_updated_at ON listings(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

const listingColumns = `id, title, description, main_category, categories, features,
	 store, price, average_rating, rating_number, created_at, updated_at`

// CreateListing inserts a listing.
func (s *SQLiteCatalog) CreateListing(ctx context.Context, doc *models.Listing) error {
	categoriesJSON, featuresJSON, err := marshalLists(doc)
	if err != nil {
		return err
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Description, doc.MainCategory, categoriesJSON, featuresJSON,
		doc.Store, doc.Price, doc.AverageRating, doc.RatingNumber, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetListing returns a listing by ID.
func (s *SQLiteCatalog) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	doc, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing not found: %s", id)
	}
	return doc, err
}

// UpdateListing updates an existing listing and bumps its updated_at timestamp.
func (s *SQLiteCatalog) UpdateListing(ctx context.Context, doc *models.Listing) error {
	categoriesJSON, featuresJSON, err := marshalLists(doc)
	if err != nil {
		return err
	}

	doc.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE listings SET title = ?, description = ?, main_category = ?, categories = ?,
		 features = ?, store = ?, price = ?, average_rating = ?, rating_number = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Title, doc.Description, doc.MainCategory, categoriesJSON, featuresJSON,
		doc.Store, doc.Price, doc.AverageRating, doc.RatingNumber, doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("listing not found: %s", doc.ID)
	}
	return nil
}

// DeleteListing removes a listing by ID.
func (s *SQLiteCatalog) DeleteListing(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	return err
}

// ListAll returns every listing ordered by creation time.
func (s *SQLiteCatalog) ListAll(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Listing
	for rows.Next() {
		doc, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count returns the total number of listings.
func (s *SQLiteCatalog) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}

func marshalLists(doc *models.Listing) (string, string, error) {
	categoriesJSON, err := json.Marshal(doc.Categories)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal categories: %w", err)
	}
	featuresJSON, err := json.Marshal(doc.Features)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal features: %w", err)
	}
	return string(categoriesJSON), string(featuresJSON), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var doc models.Listing
	var categoriesJSON, featuresJSON string
	err := row.Scan(&doc.ID, &doc.Title, &doc.Description, &doc.MainCategory,
		&categoriesJSON, &featuresJSON, &doc.Store, &doc.Price,
		&doc.AverageRating, &doc.RatingNumber, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if categoriesJSON != "" {
		if err := json.Unmarshal([]byte(categoriesJSON), &doc.Categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
	}
	if featuresJSON != "" {
		if err := json.Unmarshal([]byte(featuresJSON), &doc.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
	}
	return &doc, nil
}
