package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/confhub/internal/entity"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `
	id, title, description, organizer_id, start_date, end_date, timezone,
	category, status, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*entity.Event, error) {
	var e entity.Event
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.OrganizerID,
		&e.StartDate,
		&e.EndDate,
		&e.Timezone,
		&e.Category,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	query := `
		INSERT INTO events (
			title, description, organizer_id, start_date, end_date,
			timezone, category, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now()
	if event.Status == "" {
		event.Status = entity.EventStatusDraft
	}
	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.OrganizerID,
		event.StartDate,
		event.EndDate,
		event.Timezone,
		event.Category,
		event.Status,
		now,
		now,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	event, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT`+eventColumns+` FROM events WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) GetByIDWithStats(ctx context.Context, id int64) (*entity.EventWithStats, error) {
	query := `
		SELECT` + eventColumns + `,
			COALESCE((SELECT SUM(quantity) FROM tickets WHERE event_id = e.id), 0),
			COALESCE((SELECT SUM(sold) FROM tickets WHERE event_id = e.id), 0),
			(SELECT COUNT(*) FROM sessions WHERE event_id = e.id),
			(SELECT COUNT(*) FROM registrations WHERE event_id = e.id AND status IN ('pending', 'confirmed')),
			(SELECT COUNT(*) FROM registrations WHERE event_id = e.id AND status = 'waitlisted')
		FROM events e
		WHERE id = $1
	`

	var stats entity.EventWithStats
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stats.ID,
		&stats.Title,
		&stats.Description,
		&stats.OrganizerID,
		&stats.StartDate,
		&stats.EndDate,
		&stats.Timezone,
		&stats.Category,
		&stats.Status,
		&stats.CreatedAt,
		&stats.UpdatedAt,
		&stats.TicketsTotal,
		&stats.TicketsSold,
		&stats.SessionsCount,
		&stats.Registrations,
		&stats.WaitlistedCount,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event with stats: %w", err)
	}
	return &stats, nil
}

func (r *eventRepository) GetAll(ctx context.Context) ([]*entity.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+eventColumns+` FROM events ORDER BY start_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, start_date = $3, end_date = $4,
		    timezone = $5, category = $6, status = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.StartDate,
		event.EndDate,
		event.Timezone,
		event.Category,
		event.Status,
		time.Now(),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}

	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}

	return nil
}
