package destinations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/dbx"
	"github.com/dmitrijs2005/santatracker/internal/models"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

const columns = `id, arrival, departure, population, presents_delivered, city, region,
	lat, lng, timezone_offset, altitude, weather, street_view, gmm_street_view, photo`

// SQLRepository implements Repository over database/sql. The same queries
// serve sqlite and postgres; placeholders are rebound per dialect.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM destinations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count destinations: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) InsertAll(ctx context.Context, list []models.Destination) error {
	query := r.dialect.Rebind(`
		INSERT INTO destinations (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			arrival = excluded.arrival,
			departure = excluded.departure,
			population = excluded.population,
			presents_delivered = excluded.presents_delivered,
			city = excluded.city,
			region = excluded.region,
			lat = excluded.lat,
			lng = excluded.lng,
			timezone_offset = excluded.timezone_offset,
			altitude = excluded.altitude,
			weather = excluded.weather,
			street_view = excluded.street_view,
			gmm_street_view = excluded.gmm_street_view,
			photo = excluded.photo
	`)

	for _, d := range list {
		weather, err := encodeDetail(d.Weather)
		if err != nil {
			return fmt.Errorf("failed to encode weather[%s]: %w", d.ID, err)
		}
		streetView, err := encodeDetail(d.StreetView)
		if err != nil {
			return fmt.Errorf("failed to encode street view[%s]: %w", d.ID, err)
		}
		gmmStreetView, err := encodeDetail(d.GmmStreetView)
		if err != nil {
			return fmt.Errorf("failed to encode gmm street view[%s]: %w", d.ID, err)
		}
		photo, err := encodeDetail(d.Photo)
		if err != nil {
			return fmt.Errorf("failed to encode photo[%s]: %w", d.ID, err)
		}

		_, err = r.db.ExecContext(ctx, query,
			d.ID,
			d.Arrival.UnixMilli(),
			d.Departure.UnixMilli(),
			d.Population,
			d.PresentsDelivered,
			d.City,
			d.Region,
			d.Location.Lat,
			d.Location.Lng,
			d.TimezoneOffset.Milliseconds(),
			d.Altitude,
			weather,
			streetView,
			gmmStreetView,
			photo,
		)
		if err != nil {
			return fmt.Errorf("failed to insert destination[%s]: %w", d.ID, err)
		}
	}
	return nil
}

func (r *SQLRepository) All(ctx context.Context) ([]models.Destination, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM destinations ORDER BY departure, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	defer rows.Close()

	var result []models.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate destination rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Destination, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+columns+` FROM destinations WHERE id = ?`), id)
	d, err := scanDestination(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get destination[%s]: %w", id, err)
	}
	return d, nil
}

func (r *SQLRepository) First(ctx context.Context) (*models.Destination, error) {
	return r.one(ctx, `SELECT `+columns+` FROM destinations ORDER BY arrival ASC, id ASC LIMIT 1`)
}

func (r *SQLRepository) Last(ctx context.Context) (*models.Destination, error) {
	return r.one(ctx, `SELECT `+columns+` FROM destinations ORDER BY arrival DESC, id DESC LIMIT 1`)
}

func (r *SQLRepository) one(ctx context.Context, query string) (*models.Destination, error) {
	d, err := scanDestination(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get destination: %w", err)
	}
	return d, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM destinations`); err != nil {
		return fmt.Errorf("failed to delete destinations: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDestination(s scanner) (*models.Destination, error) {
	var (
		d                                         models.Destination
		arrival, departure, tzOffset              int64
		weather, streetView, gmmStreetView, photo sql.NullString
	)

	err := s.Scan(
		&d.ID,
		&arrival,
		&departure,
		&d.Population,
		&d.PresentsDelivered,
		&d.City,
		&d.Region,
		&d.Location.Lat,
		&d.Location.Lng,
		&tzOffset,
		&d.Altitude,
		&weather,
		&streetView,
		&gmmStreetView,
		&photo,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan destination row: %w", err)
	}

	d.Arrival = timex.FromMillis(arrival)
	d.Departure = timex.FromMillis(departure)
	d.TimezoneOffset = time.Duration(tzOffset) * time.Millisecond

	if d.Weather, err = decodeDetail[models.Weather](weather); err != nil {
		return nil, fmt.Errorf("failed to decode weather[%s]: %w", d.ID, err)
	}
	if d.StreetView, err = decodeDetail[models.StreetView](streetView); err != nil {
		return nil, fmt.Errorf("failed to decode street view[%s]: %w", d.ID, err)
	}
	if d.GmmStreetView, err = decodeDetail[models.StreetView](gmmStreetView); err != nil {
		return nil, fmt.Errorf("failed to decode gmm street view[%s]: %w", d.ID, err)
	}
	if d.Photo, err = decodeDetail[models.Photo](photo); err != nil {
		return nil, fmt.Errorf("failed to decode photo[%s]: %w", d.ID, err)
	}
	return &d, nil
}

func encodeDetail[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeDetail[T any](s sql.NullString) (*T, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, err
	}
	return &v, nil
}
