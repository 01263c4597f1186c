// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/recommend"
)

const titleColumns = `id, external_id, media_type, original_title, display_title, overview,
	year, runtime, rating, popularity, genres, countries, original_language, adult,
	metadata, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// InsertTitle stores a new title. A duplicate (external id, catalog type)
// returns recommend.ErrConflict.
func (db *DB) InsertTitle(ctx context.Context, t *recommend.Title) (err error) {
	start := time.Now()
	defer func() { observe("insert", "titles", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	genres, err := json.Marshal(nonNilStrings(t.Genres))
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}
	countries, err := json.Marshal(nonNilStrings(t.Countries))
	if err != nil {
		return fmt.Errorf("encode countries: %w", err)
	}
	var metadata sql.NullString
	if t.Metadata != nil {
		b, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO titles (id, external_id, catalog_type, media_type, original_title,
		display_title, overview, year, runtime, rating, popularity, genres, countries,
		original_language, adult, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = db.conn.ExecContext(ctx, query,
		t.ID, t.ExternalID, string(t.MediaType.CatalogType()), string(t.MediaType), t.OriginalTitle,
		nullString(t.DisplayTitle), nullString(t.Overview), t.Year, t.Runtime,
		nullFloat(t.Rating), nullFloat(t.Popularity), string(genres), string(countries),
		nullString(t.OriginalLanguage), t.Adult, metadata, t.UpdatedAt.UTC(),
	)
	if err != nil {
		return wrapWriteError("insert title", err)
	}
	return nil
}

// GetTitle returns a title by id or recommend.ErrNotFound.
func (db *DB) GetTitle(ctx context.Context, id string) (t *recommend.Title, err error) {
	start := time.Now()
	defer func() { observe("select", "titles", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+titleColumns+` FROM titles WHERE id = ?`, id)
	t, err = scanTitle(row)
	if err != nil {
		return nil, wrapReadError("get title "+id, err)
	}
	return t, nil
}

// FindByExternalID returns the title for a catalog reference or
// recommend.ErrNotFound.
func (db *DB) FindByExternalID(ctx context.Context, externalID int64, catalogType recommend.MediaType) (t *recommend.Title, err error) {
	start := time.Now()
	defer func() { observe("select", "titles", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+titleColumns+` FROM titles WHERE external_id = ? AND catalog_type = ?`,
		externalID, string(catalogType.CatalogType()))
	t, err = scanTitle(row)
	if err != nil {
		return nil, wrapReadError(fmt.Sprintf("find title %s/%d", catalogType, externalID), err)
	}
	return t, nil
}

// LocalTitles returns up to limit titles not in exclude, most recently
// updated first.
func (db *DB) LocalTitles(ctx context.Context, limit int, exclude []string) (out []recommend.Title, err error) {
	start := time.Now()
	defer func() { observe("select", "titles", start, err) }()

	if limit <= 0 {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + titleColumns + ` FROM titles`
	args := make([]any, 0, len(exclude)+1)
	if len(exclude) > 0 {
		query += ` WHERE id NOT IN (` + placeholders(len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	query += ` ORDER BY updated_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query local titles: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return out, nil
}

func scanTitle(row rowScanner) (*recommend.Title, error) {
	var (
		t                                recommend.Title
		mediaType, genres, countries     string
		displayTitle, overview, language sql.NullString
		metadata                         sql.NullString
		year, runtime                    sql.NullInt64
		rating, popularity               sql.NullFloat64
	)
	err := row.Scan(&t.ID, &t.ExternalID, &mediaType, &t.OriginalTitle, &displayTitle, &overview,
		&year, &runtime, &rating, &popularity, &genres, &countries, &language, &t.Adult,
		&metadata, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.MediaType = recommend.MediaType(mediaType)
	t.DisplayTitle = displayTitle.String
	t.Overview = overview.String
	t.OriginalLanguage = language.String
	t.Year = int(year.Int64)
	t.Runtime = int(runtime.Int64)
	if rating.Valid {
		v := rating.Float64
		t.Rating = &v
	}
	if popularity.Valid {
		v := popularity.Float64
		t.Popularity = &v
	}
	if err := json.Unmarshal([]byte(genres), &t.Genres); err != nil {
		return nil, fmt.Errorf("decode genres of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(countries), &t.Countries); err != nil {
		return nil, fmt.Errorf("decode countries of %s: %w", t.ID, err)
	}
	if metadata.Valid && metadata.String != "" {
		var m recommend.ExternalMetadata
		if err := json.Unmarshal([]byte(metadata.String), &m); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", t.ID, err)
		}
		t.Metadata = &m
	}
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
