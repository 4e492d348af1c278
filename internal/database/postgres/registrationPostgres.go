package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/confhub/internal/entity"
)

type registrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

const registrationColumns = `
	id, event_id, user_id, ticket_id, status, payment_status, amount,
	qr_code, checked_in, check_in_time, created_at, updated_at`

func scanRegistration(row interface{ Scan(...interface{}) error }) (*entity.Registration, error) {
	var reg entity.Registration
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.TicketID,
		&reg.Status,
		&reg.PaymentStatus,
		&reg.Amount,
		&reg.QRCode,
		&reg.CheckedIn,
		&reg.CheckInTime,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) Create(ctx context.Context, registration *entity.Registration) error {
	query := `
		INSERT INTO registrations (
			event_id, user_id, ticket_id, status, payment_status, amount,
			qr_code, checked_in, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		registration.EventID,
		registration.UserID,
		registration.TicketID,
		registration.Status,
		registration.PaymentStatus,
		registration.Amount,
		registration.QRCode,
		now,
		now,
	).Scan(&registration.ID)

	if err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}

	registration.CreatedAt = now
	registration.UpdatedAt = now
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id int64) (*entity.Registration, error) {
	query := `SELECT` + registrationColumns + ` FROM registrations WHERE id = $1`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

// GetActiveByEventAndUser returns the non-cancelled registration for the
// (event, user) pair, which the one-registration-per-user invariant allows
// at most one of.
func (r *registrationRepository) GetActiveByEventAndUser(ctx context.Context, eventID, userID int64) (*entity.Registration, error) {
	query := `
		SELECT` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND user_id = $2 AND status != 'cancelled'
		LIMIT 1
	`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, eventID, userID))
	if err == sql.ErrNoRows {
		return nil, entity.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration by event and user: %w", err)
	}
	return reg, nil
}

func (r *registrationRepository) GetByEventID(ctx context.Context, eventID int64, status entity.RegistrationStatus, limit, offset int) ([]*entity.Registration, int, error) {
	where := `WHERE event_id = $1`
	args := []interface{}{eventID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM registrations ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT`+registrationColumns+`
		FROM registrations
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query registrations by event: %w", err)
	}
	defer rows.Close()

	var registrations []*entity.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan registration: %w", err)
		}
		registrations = append(registrations, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating registrations: %w", err)
	}

	return registrations, total, nil
}

func (r *registrationRepository) GetByUserID(ctx context.Context, userID int64) ([]*entity.Registration, error) {
	query := `
		SELECT` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations by user: %w", err)
	}
	defer rows.Close()

	var registrations []*entity.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		registrations = append(registrations, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}

	return registrations, nil
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, id int64, status entity.RegistrationStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanRegistration(tx.QueryRowContext(ctx,
		`SELECT`+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return entity.ErrRegistrationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock registration: %w", err)
	}

	if !current.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, current.Status, status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE registrations SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *registrationRepository) UpdatePaymentStatus(ctx context.Context, id int64, status entity.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET payment_status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrRegistrationNotFound
	}

	return nil
}

func (r *registrationRepository) Checkin(ctx context.Context, id int64, at time.Time) (*entity.Registration, error) {
	query := `
		UPDATE registrations
		SET checked_in = TRUE, check_in_time = $2, updated_at = $2
		WHERE id = $1
		RETURNING` + registrationColumns

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id, at))
	if err == sql.ErrNoRows {
		return nil, entity.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check in registration: %w", err)
	}
	return reg, nil
}

// CancelAndPromote performs the cancellation and the waitlist promotion as
// one transaction, so sold and the set of seat-holding registrations can
// never diverge. Repeating the call on an already cancelled registration is
// a no-op.
func (r *registrationRepository) CancelAndPromote(ctx context.Context, id int64) (*entity.Registration, *entity.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanRegistration(tx.QueryRowContext(ctx,
		`SELECT`+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, nil, entity.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock registration: %w", err)
	}

	// Idempotent: a second cancel changes nothing and releases nothing.
	if current.Status == entity.RegistrationStatusCancelled {
		if err := tx.Commit(); err != nil {
			return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return current, nil, nil
	}

	heldSeat := current.HoldsSeat()
	now := time.Now()

	_, err = tx.ExecContext(ctx,
		`UPDATE registrations SET status = 'cancelled', updated_at = $1 WHERE id = $2`,
		now, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to cancel registration: %w", err)
	}
	current.Status = entity.RegistrationStatusCancelled

	// A waitlisted registration held no unit, so nothing to release
	// and nobody to promote.
	if !heldSeat {
		if err := tx.Commit(); err != nil {
			return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return current, nil, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tickets SET sold = GREATEST(sold - 1, 0), updated_at = $1 WHERE id = $2`,
		now, current.TicketID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to release ticket unit: %w", err)
	}

	// Oldest waitlisted registration for the same ticket takes the freed
	// unit. SKIP LOCKED keeps two concurrent cancellations from promoting
	// the same candidate.
	promoted, err := scanRegistration(tx.QueryRowContext(ctx, `
		SELECT`+registrationColumns+`
		FROM registrations
		WHERE event_id = $1 AND ticket_id = $2 AND status = 'waitlisted'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, current.EventID, current.TicketID))
	if err == sql.ErrNoRows {
		// No candidate: the unit stays available for the next register call.
		if err := tx.Commit(); err != nil {
			return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return current, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select waitlist candidate: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE registrations SET status = 'confirmed', updated_at = $1 WHERE id = $2`,
		now, promoted.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to promote registration: %w", err)
	}
	promoted.Status = entity.RegistrationStatusConfirmed

	_, err = tx.ExecContext(ctx,
		`UPDATE tickets SET sold = sold + 1, updated_at = $1 WHERE id = $2 AND sold < quantity`,
		now, promoted.TicketID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to re-reserve ticket unit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return current, promoted, nil
}

// PromoteOldestWaitlisted confirms the oldest waitlisted registration for
// the ticket, taking over a unit the caller already reserved. Used by the
// compensation path when a registration insert fails after a reserve.
func (r *registrationRepository) PromoteOldestWaitlisted(ctx context.Context, eventID, ticketID int64) (*entity.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	promoted, err := scanRegistration(tx.QueryRowContext(ctx, `
		SELECT`+registrationColumns+`
		FROM registrations
		WHERE event_id = $1 AND ticket_id = $2 AND status = 'waitlisted'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, eventID, ticketID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select waitlist candidate: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE registrations SET status = 'confirmed', updated_at = $1 WHERE id = $2`,
		time.Now(), promoted.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to promote registration: %w", err)
	}
	promoted.Status = entity.RegistrationStatusConfirmed

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return promoted, nil
}

func (r *registrationRepository) GetStalePending(ctx context.Context, before time.Time) ([]*entity.Registration, error) {
	query := `
		SELECT` + registrationColumns + `
		FROM registrations
		WHERE status = 'pending' AND payment_status != 'paid' AND created_at < $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending registrations: %w", err)
	}
	defer rows.Close()

	var registrations []*entity.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		registrations = append(registrations, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}

	return registrations, nil
}
