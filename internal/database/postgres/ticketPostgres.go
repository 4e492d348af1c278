package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/confhub/internal/entity"
)

type ticketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *entity.Ticket) error {
	query := `
		INSERT INTO tickets (
			event_id, name, type, description, price, early_bird_price,
			early_bird_deadline, quantity, sold, max_per_order, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		ticket.EventID,
		ticket.Name,
		ticket.Type,
		ticket.Description,
		ticket.Price,
		ticket.EarlyBirdPrice,
		ticket.EarlyBirdDeadline,
		ticket.Quantity,
		ticket.MaxPerOrder,
		ticket.IsActive,
		now,
		now,
	).Scan(&ticket.ID)

	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	ticket.Sold = 0
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*entity.Ticket, error) {
	query := `
		SELECT
			id, event_id, name, type, description, price, early_bird_price,
			early_bird_deadline, quantity, sold, max_per_order, is_active,
			created_at, updated_at
		FROM tickets
		WHERE id = $1
	`

	var ticket entity.Ticket
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.Name,
		&ticket.Type,
		&ticket.Description,
		&ticket.Price,
		&ticket.EarlyBirdPrice,
		&ticket.EarlyBirdDeadline,
		&ticket.Quantity,
		&ticket.Sold,
		&ticket.MaxPerOrder,
		&ticket.IsActive,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return &ticket, nil
}

func (r *ticketRepository) GetByEventID(ctx context.Context, eventID int64) ([]*entity.Ticket, error) {
	query := `
		SELECT
			id, event_id, name, type, description, price, early_bird_price,
			early_bird_deadline, quantity, sold, max_per_order, is_active,
			created_at, updated_at
		FROM tickets
		WHERE event_id = $1
		ORDER BY price ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets by event: %w", err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		var ticket entity.Ticket
		err := rows.Scan(
			&ticket.ID,
			&ticket.EventID,
			&ticket.Name,
			&ticket.Type,
			&ticket.Description,
			&ticket.Price,
			&ticket.EarlyBirdPrice,
			&ticket.EarlyBirdDeadline,
			&ticket.Quantity,
			&ticket.Sold,
			&ticket.MaxPerOrder,
			&ticket.IsActive,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, &ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *entity.Ticket) error {
	// Quantity can only grow or shrink down to the sold count, so the
	// 0 <= sold <= quantity invariant survives the update.
	query := `
		UPDATE tickets
		SET name = $1, type = $2, description = $3, price = $4,
		    early_bird_price = $5, early_bird_deadline = $6,
		    quantity = GREATEST($7, sold), max_per_order = $8,
		    is_active = $9, updated_at = $10
		WHERE id = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		ticket.Name,
		ticket.Type,
		ticket.Description,
		ticket.Price,
		ticket.EarlyBirdPrice,
		ticket.EarlyBirdDeadline,
		ticket.Quantity,
		ticket.MaxPerOrder,
		ticket.IsActive,
		time.Now(),
		ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrTicketNotFound
	}

	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM tickets WHERE id = $1 AND sold = 0`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrTicketNotFound
	}

	return nil
}

// Reserve takes one unit with a single conditional UPDATE: the check and
// the increment execute in one statement, so two concurrent calls against
// the last unit can never both succeed.
func (r *ticketRepository) Reserve(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE tickets
		SET sold = sold + 1, updated_at = $2
		WHERE id = $1 AND sold < quantity AND is_active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to reserve ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return true, nil
	}

	// Distinguish a sold-out ticket from a missing or inactive one.
	var isActive bool
	err = r.db.QueryRowContext(ctx, `SELECT is_active FROM tickets WHERE id = $1`, id).Scan(&isActive)
	if err == sql.ErrNoRows {
		return false, entity.ErrTicketNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ticket: %w", err)
	}
	if !isActive {
		return false, entity.ErrTicketInactive
	}

	return false, nil
}

// Release puts one unit back, floored at zero so a duplicate release can
// never drive sold negative.
func (r *ticketRepository) Release(ctx context.Context, id int64) error {
	query := `
		UPDATE tickets
		SET sold = GREATEST(sold - 1, 0), updated_at = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to release ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrTicketNotFound
	}

	return nil
}

func (r *ticketRepository) CountWaitlisted(ctx context.Context, id int64) (int, error) {
	query := `SELECT COUNT(*) FROM registrations WHERE ticket_id = $1 AND status = 'waitlisted'`
	var count int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count waitlisted registrations: %w", err)
	}
	return count, nil
}
