package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
)

// RatingsRepository is the append-only event store for rating events.
type RatingsRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Insert validates and persists a rating stamped with the current time.
func (r *RatingsRepository) Insert(ctx context.Context, value int) (domain.RatingEvent, error) {
	if err := domain.ValidateValue(value); err != nil {
		return domain.RatingEvent{}, err
	}

	const query = `
        INSERT INTO rating_events (value, ts_ms)
        VALUES ($1, $2)
        RETURNING id, value, ts_ms
    `

	var ev domain.RatingEvent
	err := r.pool.QueryRow(ctx, query, value, r.now().UnixMilli()).Scan(&ev.ID, &ev.Value, &ev.Timestamp)
	if err != nil {
		return domain.RatingEvent{}, fmt.Errorf("insert rating: %w", err)
	}
	return ev, nil
}

// List returns every stored event ordered by timestamp ascending.
func (r *RatingsRepository) List(ctx context.Context) ([]domain.RatingEvent, error) {
	const query = `
        SELECT id, value, ts_ms
        FROM rating_events
        ORDER BY ts_ms ASC, id ASC
    `

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RatingEvent, error) {
		var ev domain.RatingEvent
		err := row.Scan(&ev.ID, &ev.Value, &ev.Timestamp)
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan ratings: %w", err)
	}
	return events, nil
}

// Aggregate recomputes the aggregate from the full current event set.
func (r *RatingsRepository) Aggregate(ctx context.Context) (domain.Aggregate, error) {
	events, err := r.List(ctx)
	if err != nil {
		return domain.Aggregate{}, err
	}
	return domain.ComputeAggregate(events), nil
}

// Clear removes every stored event and reports how many were deleted.
func (r *RatingsRepository) Clear(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rating_events`)
	if err != nil {
		return 0, fmt.Errorf("clear ratings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Get retrieves a single event by id.
func (r *RatingsRepository) Get(ctx context.Context, id int64) (domain.RatingEvent, error) {
	const query = `SELECT id, value, ts_ms FROM rating_events WHERE id = $1`

	var ev domain.RatingEvent
	err := r.pool.QueryRow(ctx, query, id).Scan(&ev.ID, &ev.Value, &ev.Timestamp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.RatingEvent{}, ErrNotFound
		}
		return domain.RatingEvent{}, err
	}
	return ev, nil
}
