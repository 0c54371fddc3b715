// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/miru/internal/apperr"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/vector"
)

// SQLiteStore implements Store using SQLite. Embeddings are persisted in the
// vector codec's text form so rows stay inspectable with plain SQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
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

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		image_hash TEXT NOT NULL UNIQUE,
		embedding TEXT,
		tags TEXT,
		extracted_text TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_created_at ON images(created_at);

	CREATE TABLE IF NOT EXISTS text_queries (
		query TEXT PRIMARY KEY,
		embedding TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// InsertImage inserts a record. A uniqueness violation on image_hash yields
// apperr.ErrDuplicateKey; any other failure yields apperr.ErrStorage.
func (s *SQLiteStore) InsertImage(ctx context.Context, rec *models.ImageRecord) error {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("%w: marshal tags: %v", apperr.ErrStorage, err)
	}

	var embeddingText sql.NullString
	if rec.Embedding != nil {
		embeddingText = sql.NullString{String: vector.Encode(rec.Embedding), Valid: true}
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO images (id, url, image_hash, embedding, tags, extracted_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.ImageHash, embeddingText, string(tagsJSON), rec.ExtractedText, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: image_hash %s", apperr.ErrDuplicateKey, rec.ImageHash)
		}
		return fmt.Errorf("%w: insert image: %v", apperr.ErrStorage, err)
	}
	return nil
}

// FindImageByHash returns the record with the given content hash, or (nil, nil) when absent.
func (s *SQLiteStore) FindImageByHash(ctx context.Context, hash string) (*models.ImageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, image_hash, embedding, tags, extracted_text, created_at
		 FROM images WHERE image_hash = ?`, hash,
	)
	rec, err := scanImage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find image: %v", apperr.ErrStorage, err)
	}
	return rec, nil
}

// FindImagesByHashes returns the records for the given hashes, in the order requested.
// Hashes with no record are skipped.
func (s *SQLiteStore) FindImagesByHashes(ctx context.Context, hashes []string) ([]*models.ImageRecord, error) {
	if len(hashes) == 0 {
		return []*models.ImageRecord{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(hashes)), ",")
	args := make([]any, len(hashes))
	for i, h := range hashes {
		args[i] = h
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, image_hash, embedding, tags, extracted_text, created_at
		 FROM images WHERE image_hash IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: find images by hashes: %v", apperr.ErrStorage, err)
	}
	defer rows.Close()

	byHash := make(map[string]*models.ImageRecord, len(hashes))
	for rows.Next() {
		rec, err := scanImage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan image: %v", apperr.ErrStorage, err)
		}
		byHash[rec.ImageHash] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	out := make([]*models.ImageRecord, 0, len(hashes))
	for _, h := range hashes {
		if rec, ok := byHash[h]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListEmbedded returns all records with a non-null embedding, created_at ascending.
func (s *SQLiteStore) ListEmbedded(ctx context.Context) ([]*models.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, image_hash, embedding, tags, extracted_text, created_at
		 FROM images WHERE embedding IS NOT NULL ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list embedded: %v", apperr.ErrStorage, err)
	}
	defer rows.Close()

	var recs []*models.ImageRecord
	for rows.Next() {
		rec, err := scanImage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan image: %v", apperr.ErrStorage, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return recs, nil
}

// CountImages returns the total number of image records.
func (s *SQLiteStore) CountImages(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count images: %v", apperr.ErrStorage, err)
	}
	return count, nil
}

// LookupTextQuery returns the cached embedding for query, or (nil, nil) when absent.
// Exact match on the raw query string; no normalization.
func (s *SQLiteStore) LookupTextQuery(ctx context.Context, query string) ([]float32, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM text_queries WHERE query = ?`, query,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup text query: %v", apperr.ErrStorage, err)
	}
	vec, err := vector.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: decode cached embedding: %v", apperr.ErrStorage, err)
	}
	return vec, nil
}

// StoreTextQueryIfAbsent inserts the embedding for query unless a row already
// exists. INSERT OR IGNORE keeps the first writer's row; a losing concurrent
// writer observes no error.
func (s *SQLiteStore) StoreTextQueryIfAbsent(ctx context.Context, query string, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO text_queries (query, embedding, created_at) VALUES (?, ?, ?)`,
		query, vector.Encode(embedding), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: store text query: %v", apperr.ErrStorage, err)
	}
	return nil
}

// CountTextQueries returns the number of cached text queries.
func (s *SQLiteStore) CountTextQueries(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM text_queries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count text queries: %v", apperr.ErrStorage, err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanImage(scan func(dest ...any) error) (*models.ImageRecord, error) {
	var rec models.ImageRecord
	var embeddingText sql.NullString
	var tagsJSON sql.NullString
	var extracted sql.NullString
	if err := scan(&rec.ID, &rec.URL, &rec.ImageHash, &embeddingText, &tagsJSON, &extracted, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if embeddingText.Valid {
		vec, err := vector.Decode(embeddingText.String)
		if err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		rec.Embedding = vec
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &rec.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if extracted.Valid {
		rec.ExtractedText = extracted.String
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
