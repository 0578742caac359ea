package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hanoigo/assistant/internal/core/domain"
)

// Venues in the "Lưu trú" category are accommodation listings; they are never
// valid suggestions for a dating query, nor are guest houses that slipped into
// other categories.
const accommodationCategory = "Lưu trú"

var datingExcludedNameTerms = []string{"nhà nghỉ", "nhà trọ"}

type VenueRepository struct {
	db *sql.DB
}

func NewVenueRepository(db *sql.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *VenueRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS venues (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	district TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	price_min BIGINT,
	price_max BIGINT,
	tags JSONB NOT NULL DEFAULT '{}'::jsonb,
	tag_list TEXT[] NOT NULL DEFAULT '{}',
	lat DOUBLE PRECISION,
	lng DOUBLE PRECISION,
	review_count INTEGER NOT NULL DEFAULT 0,
	average_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_venues_district ON venues(district);
CREATE INDEX IF NOT EXISTS idx_venues_category ON venues(category);
CREATE INDEX IF NOT EXISTS idx_venues_tag_list ON venues USING GIN(tag_list);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const venueColumns = `id, name, address, district, category, description, price_min, price_max, tags, lat, lng, review_count, average_rating`

func (r *VenueRepository) Upsert(ctx context.Context, v *domain.Venue) error {
	tagsJSON, err := json.Marshal(v.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	tagList := strings.Join(v.Tags.All(), ",")

	var lat, lng any
	if v.Location != nil {
		lat, lng = v.Location.Lat, v.Location.Lng
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
INSERT INTO venues (
	id, name, address, district, category, description, price_min, price_max, tags, tag_list, lat, lng, review_count, average_rating, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,string_to_array($10,','),$11,$12,$13,$14,$15,$15)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	address = EXCLUDED.address,
	district = EXCLUDED.district,
	category = EXCLUDED.category,
	description = EXCLUDED.description,
	price_min = EXCLUDED.price_min,
	price_max = EXCLUDED.price_max,
	tags = EXCLUDED.tags,
	tag_list = EXCLUDED.tag_list,
	lat = EXCLUDED.lat,
	lng = EXCLUDED.lng,
	review_count = EXCLUDED.review_count,
	average_rating = EXCLUDED.average_rating,
	updated_at = EXCLUDED.updated_at
`,
		v.ID, v.Name, v.Address, v.District, v.Category, v.Description,
		v.PriceMin, v.PriceMax, tagsJSON, tagList, lat, lng,
		v.ReviewCount, v.AverageRating, now,
	)
	if err != nil {
		return fmt.Errorf("upsert venue: %w", err)
	}
	return nil
}

// SearchByKeyword matches by substring ILIKE, looser than the word-bounded
// matching the intent classifier uses to pick the keyword. Kept substring on
// purpose so "chè" still hits "quán chè Bốn Mùa" inside longer fields; flag
// to product before tightening to word boundaries.
func (r *VenueRepository) SearchByKeyword(ctx context.Context, keyword string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	args := []any{"%" + keyword + "%"}
	where := []string{`(name ILIKE $1 OR address ILIKE $1 OR description ILIKE $1 OR category ILIKE $1 OR EXISTS (SELECT 1 FROM unnest(tag_list) AS t WHERE t ILIKE $1))`}
	where, args = appendFilterClauses(where, args, filter)

	query := fmt.Sprintf(`
SELECT %s
FROM venues
WHERE %s
ORDER BY review_count DESC, average_rating DESC
LIMIT $%d
`, venueColumns, strings.Join(where, " AND "), len(args)+1)
	args = append(args, limit)

	return r.queryVenues(ctx, "search by keyword", query, args...)
}

func (r *VenueRepository) SearchByTags(ctx context.Context, tags []string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	args := []any{strings.Join(tags, ",")}
	where := []string{`tag_list && string_to_array($1, ',')`}
	where, args = appendFilterClauses(where, args, filter)

	query := fmt.Sprintf(`
SELECT %s
FROM venues
WHERE %s
ORDER BY review_count DESC, average_rating DESC
LIMIT $%d
`, venueColumns, strings.Join(where, " AND "), len(args)+1)
	args = append(args, limit)

	return r.queryVenues(ctx, "search by tags", query, args...)
}

func (r *VenueRepository) SearchByAddress(ctx context.Context, fragment string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	args := []any{"%" + fragment + "%"}
	where := []string{`address ILIKE $1`}
	where, args = appendFilterClauses(where, args, filter)

	query := fmt.Sprintf(`
SELECT %s
FROM venues
WHERE %s
ORDER BY review_count DESC, average_rating DESC
LIMIT $%d
`, venueColumns, strings.Join(where, " AND "), len(args)+1)
	args = append(args, limit)

	return r.queryVenues(ctx, "search by address", query, args...)
}

func (r *VenueRepository) SearchNearby(ctx context.Context, center domain.Coordinates, radiusKm float64, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	args := []any{center.Lat, center.Lng}
	where := []string{`lat IS NOT NULL AND lng IS NOT NULL`}
	where, args = appendFilterClauses(where, args, filter)

	query := fmt.Sprintf(`
SELECT %s FROM (
	SELECT %s,
		(6371 * acos(least(1.0,
			cos(radians($1)) * cos(radians(lat)) * cos(radians(lng) - radians($2))
			+ sin(radians($1)) * sin(radians(lat))
		))) AS distance_km
	FROM venues
	WHERE %s
) AS candidates
WHERE distance_km <= $%d
ORDER BY distance_km ASC
LIMIT $%d
`, venueColumns, venueColumns, strings.Join(where, " AND "), len(args)+1, len(args)+2)
	args = append(args, radiusKm, limit)

	return r.queryVenues(ctx, "search nearby", query, args...)
}

func (r *VenueRepository) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	query := fmt.Sprintf(`SELECT %s FROM venues WHERE id = $1`, venueColumns)
	row := r.db.QueryRowContext(ctx, query, id)

	venue, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrVenueNotFound, id)
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return venue, nil
}

func (r *VenueRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM venues WHERE id = ANY(string_to_array($1, ','))`, venueColumns)
	return r.queryVenues(ctx, "get venues by ids", query, strings.Join(ids, ","))
}

// appendFilterClauses adds the conjunctive district constraint and the dating
// exclusions to an existing WHERE clause list.
func appendFilterClauses(where []string, args []any, filter domain.RetrievalFilter) ([]string, []any) {
	if filter.District != "" {
		args = append(args, filter.District)
		where = append(where, fmt.Sprintf("district = $%d", len(args)))
	}
	if filter.IsDating {
		args = append(args, accommodationCategory)
		where = append(where, fmt.Sprintf("category <> $%d", len(args)))
		for _, term := range datingExcludedNameTerms {
			args = append(args, "%"+term+"%")
			where = append(where, fmt.Sprintf("name NOT ILIKE $%d", len(args)))
		}
	}
	return where, args
}

func (r *VenueRepository) queryVenues(ctx context.Context, op, query string, args ...any) ([]domain.Venue, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		venues = append(venues, *venue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return venues, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenue(row rowScanner) (*domain.Venue, error) {
	var v domain.Venue
	var tagsRaw []byte
	var priceMin, priceMax sql.NullInt64
	var lat, lng sql.NullFloat64

	err := row.Scan(
		&v.ID, &v.Name, &v.Address, &v.District, &v.Category, &v.Description,
		&priceMin, &priceMax, &tagsRaw, &lat, &lng, &v.ReviewCount, &v.AverageRating,
	)
	if err != nil {
		return nil, err
	}

	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &v.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if priceMin.Valid {
		v.PriceMin = int(priceMin.Int64)
	}
	if priceMax.Valid {
		v.PriceMax = int(priceMax.Int64)
	}
	if lat.Valid && lng.Valid {
		v.Location = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &v, nil
}
