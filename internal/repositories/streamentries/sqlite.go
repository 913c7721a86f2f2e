package streamentries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/dbx"
	"github.com/dmitrijs2005/santatracker/internal/models"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stream_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stream entries: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) InsertAll(ctx context.Context, list []models.StreamEntry) error {
	query := r.dialect.Rebind(`
		INSERT INTO stream_entries (ts, kind, is_notification, content) VALUES (?, ?, ?, ?)
		ON CONFLICT(ts) DO UPDATE SET
			kind = excluded.kind,
			is_notification = excluded.is_notification,
			content = excluded.content
	`)

	for _, e := range list {
		ts := e.Timestamp.UnixMilli()
		if _, err := r.db.ExecContext(ctx, query, ts, string(e.Kind), e.IsNotification, e.Content); err != nil {
			return fmt.Errorf("failed to insert stream entry[%d]: %w", ts, err)
		}
	}
	return nil
}

func (r *SQLRepository) All(ctx context.Context) ([]models.StreamEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ts, kind, is_notification, content FROM stream_entries ORDER BY ts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stream entries: %w", err)
	}
	defer rows.Close()

	var result []models.StreamEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stream entry row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stream entry rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Get(ctx context.Context, ts time.Time) (*models.StreamEntry, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT ts, kind, is_notification, content FROM stream_entries WHERE ts = ?`),
		ts.UnixMilli())

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream entry[%d]: %w", ts.UnixMilli(), err)
	}
	return &e, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM stream_entries`); err != nil {
		return fmt.Errorf("failed to delete stream entries: %w", err)
	}
	return nil
}

func scanEntry(s interface{ Scan(...any) error }) (models.StreamEntry, error) {
	var (
		e    models.StreamEntry
		ts   int64
		kind string
	)
	if err := s.Scan(&ts, &kind, &e.IsNotification, &e.Content); err != nil {
		return models.StreamEntry{}, err
	}
	e.Timestamp = timex.FromMillis(ts)
	e.Kind = models.StreamKind(kind)
	return e, nil
}
