package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pavemap/backend/internal/domain"
)

// Schema creates the dataset tables. Rows keep their dataset order in position.
const Schema = `
CREATE TABLE IF NOT EXISTS road_super_sections (
	year           INTEGER NOT NULL,
	position       INTEGER NOT NULL,
	id             TEXT NOT NULL,
	name           TEXT NOT NULL,
	coordinates    JSONB NOT NULL,
	condition      DOUBLE PRECISION NOT NULL,
	length_km      DOUBLE PRECISION NOT NULL,
	traffic_volume INTEGER NOT NULL,
	last_inspected TIMESTAMPTZ,
	category       TEXT NOT NULL,
	PRIMARY KEY (year, id)
);
CREATE TABLE IF NOT EXISTS road_sections (
	year           INTEGER NOT NULL,
	position       INTEGER NOT NULL,
	id             TEXT NOT NULL,
	parent_id      TEXT NOT NULL,
	start_lat      DOUBLE PRECISION NOT NULL,
	start_lng      DOUBLE PRECISION NOT NULL,
	end_lat        DOUBLE PRECISION NOT NULL,
	end_lng        DOUBLE PRECISION NOT NULL,
	condition      DOUBLE PRECISION NOT NULL,
	last_inspected TIMESTAMPTZ,
	category       TEXT NOT NULL,
	video_url      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (year, id)
);
CREATE TABLE IF NOT EXISTS distress_points (
	year        INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	id          TEXT NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lng         DOUBLE PRECISION NOT NULL,
	type        TEXT NOT NULL,
	severity    INTEGER NOT NULL,
	size        DOUBLE PRECISION NOT NULL,
	reported_at TIMESTAMPTZ,
	PRIMARY KEY (year, id)
);
`

var tables = []string{"road_super_sections", "road_sections", "distress_points"}

// PostgresRepository implements domain.DatasetRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates missing tables
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: failed to migrate: %w", err)
	}
	return nil
}

// SaveDataset replaces the stored dataset for ds.Year in one transaction
func (r *PostgresRepository) SaveDataset(ctx context.Context, ds domain.YearDataset) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range tables {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE year = $1", ds.Year); err != nil {
			return fmt.Errorf("postgres: failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"road_super_sections"},
		[]string{"year", "position", "id", "name", "coordinates", "condition", "length_km", "traffic_volume", "last_inspected", "category"},
		pgx.CopyFromSlice(len(ds.SuperSections), func(i int) ([]any, error) {
			s := ds.SuperSections[i]
			return []any{ds.Year, i, s.ID, s.Name, s.Coordinates, s.Condition, s.LengthKm, s.TrafficVolume, nullTime(s.LastInspected), string(s.Category)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save super sections: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"road_sections"},
		[]string{"year", "position", "id", "parent_id", "start_lat", "start_lng", "end_lat", "end_lng", "condition", "last_inspected", "category", "video_url"},
		pgx.CopyFromSlice(len(ds.SubSections), func(i int) ([]any, error) {
			s := ds.SubSections[i]
			a, b := s.Coordinates[0], s.Coordinates[1]
			return []any{ds.Year, i, s.ID, s.ParentID, a.Lat, a.Lng, b.Lat, b.Lng, s.Condition, nullTime(s.LastInspected), string(s.Category), s.VideoURL}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save sections: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"distress_points"},
		[]string{"year", "position", "id", "lat", "lng", "type", "severity", "size", "reported_at"},
		pgx.CopyFromSlice(len(ds.DistressPoints), func(i int) ([]any, error) {
			p := ds.DistressPoints[i]
			return []any{ds.Year, i, p.ID, p.Position.Lat, p.Position.Lng, string(p.Type), p.Severity, p.Size, nullTime(p.ReportedAt)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save distress points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: failed to commit dataset: %w", err)
	}
	return nil
}

// LoadDataset retrieves the dataset for a year
func (r *PostgresRepository) LoadDataset(ctx context.Context, year int) (domain.YearDataset, error) {
	ds := domain.YearDataset{Year: year}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, coordinates, condition, length_km, traffic_volume, last_inspected, category
		FROM road_super_sections
		WHERE year = $1
		ORDER BY position
	`, year)
	if err != nil {
		return ds, fmt.Errorf("postgres: failed to query super sections: %w", err)
	}
	for rows.Next() {
		var s domain.SuperSection
		var inspected *time.Time
		var category string
		if err := rows.Scan(&s.ID, &s.Name, &s.Coordinates, &s.Condition, &s.LengthKm, &s.TrafficVolume, &inspected, &category); err != nil {
			rows.Close()
			return ds, fmt.Errorf("postgres: failed to scan super section row: %w", err)
		}
		s.LastInspected = timeOrZero(inspected)
		s.Category = domain.Category(category)
		ds.SuperSections = append(ds.SuperSections, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ds, fmt.Errorf("postgres: failed to read super sections: %w", err)
	}
	if len(ds.SuperSections) == 0 {
		return ds, domain.ErrDatasetNotFound
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, parent_id, start_lat, start_lng, end_lat, end_lng, condition, last_inspected, category, video_url
		FROM road_sections
		WHERE year = $1
		ORDER BY position
	`, year)
	if err != nil {
		return ds, fmt.Errorf("postgres: failed to query sections: %w", err)
	}
	for rows.Next() {
		var s domain.SubSection
		var inspected *time.Time
		var category string
		a, b := &s.Coordinates[0], &s.Coordinates[1]
		if err := rows.Scan(&s.ID, &s.ParentID, &a.Lat, &a.Lng, &b.Lat, &b.Lng, &s.Condition, &inspected, &category, &s.VideoURL); err != nil {
			rows.Close()
			return ds, fmt.Errorf("postgres: failed to scan section row: %w", err)
		}
		s.LastInspected = timeOrZero(inspected)
		s.Category = domain.Category(category)
		ds.SubSections = append(ds.SubSections, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ds, fmt.Errorf("postgres: failed to read sections: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, lat, lng, type, severity, size, reported_at
		FROM distress_points
		WHERE year = $1
		ORDER BY position
	`, year)
	if err != nil {
		return ds, fmt.Errorf("postgres: failed to query distress points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.DistressPoint
		var reported *time.Time
		var typ string
		if err := rows.Scan(&p.ID, &p.Position.Lat, &p.Position.Lng, &typ, &p.Severity, &p.Size, &reported); err != nil {
			return ds, fmt.Errorf("postgres: failed to scan distress row: %w", err)
		}
		p.Type = domain.DistressType(typ)
		p.ReportedAt = timeOrZero(reported)
		ds.DistressPoints = append(ds.DistressPoints, p)
	}
	if err := rows.Err(); err != nil {
		return ds, fmt.Errorf("postgres: failed to read distress points: %w", err)
	}

	return ds, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// nullTime stores zero times as NULL
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
