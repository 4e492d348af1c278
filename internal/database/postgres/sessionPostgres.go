package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/confhub/internal/entity"
)

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `
		INSERT INTO sessions (
			event_id, title, description, speaker_id, speaker_name, room,
			start_time, end_time, capacity, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now()
	if session.Status == "" {
		session.Status = entity.SessionStatusScheduled
	}
	err := r.db.QueryRowContext(ctx, query,
		session.EventID,
		session.Title,
		session.Description,
		session.SpeakerID,
		session.SpeakerName,
		session.Room,
		session.StartTime,
		session.EndTime,
		session.Capacity,
		session.Status,
		now,
		now,
	).Scan(&session.ID)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	session.CreatedAt = now
	session.UpdatedAt = now
	return nil
}

func scanSessionRow(row interface{ Scan(...interface{}) error }) (*entity.Session, error) {
	var s entity.Session
	err := row.Scan(
		&s.ID,
		&s.EventID,
		&s.Title,
		&s.Description,
		&s.SpeakerID,
		&s.SpeakerName,
		&s.Room,
		&s.StartTime,
		&s.EndTime,
		&s.Capacity,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const sessionColumns = `
	id, event_id, title, description, speaker_id, speaker_name, room,
	start_time, end_time, capacity, status, created_at, updated_at`

// loadMembers fills Attendees and Waitlist in join order and sets Registered.
func (r *sessionRepository) loadMembers(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
}, session *entity.Session) error {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, role
		FROM session_attendees
		WHERE session_id = $1
		ORDER BY position ASC`, session.ID)
	if err != nil {
		return fmt.Errorf("failed to query session members: %w", err)
	}
	defer rows.Close()

	session.Attendees = nil
	session.Waitlist = nil
	for rows.Next() {
		var userID int64
		var role string
		if err := rows.Scan(&userID, &role); err != nil {
			return fmt.Errorf("failed to scan session member: %w", err)
		}
		if role == "attendee" {
			session.Attendees = append(session.Attendees, userID)
		} else {
			session.Waitlist = append(session.Waitlist, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating session members: %w", err)
	}

	session.Registered = len(session.Attendees)
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*entity.Session, error) {
	session, err := scanSessionRow(r.db.QueryRowContext(ctx,
		`SELECT`+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := r.loadMembers(ctx, r.db, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) GetByEventID(ctx context.Context, eventID int64) ([]*entity.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+sessionColumns+` FROM sessions WHERE event_id = $1 ORDER BY start_time ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions by event: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.Session
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	for _, s := range sessions {
		if err := r.loadMembers(ctx, r.db, s); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *entity.Session) error {
	query := `
		UPDATE sessions
		SET title = $1, description = $2, speaker_id = $3, speaker_name = $4,
		    room = $5, start_time = $6, end_time = $7, capacity = $8,
		    status = $9, updated_at = $10
		WHERE id = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		session.Title,
		session.Description,
		session.SpeakerID,
		session.SpeakerName,
		session.Room,
		session.StartTime,
		session.EndTime,
		session.Capacity,
		session.Status,
		time.Now(),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrSessionNotFound
	}

	return nil
}

// Join locks the session row, so the capacity check and the membership
// insert see a consistent seat count under concurrency.
func (r *sessionRepository) Join(ctx context.Context, sessionID, userID int64) (bool, *entity.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	session, err := scanSessionRow(tx.QueryRowContext(ctx,
		`SELECT`+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, sessionID))
	if err == sql.ErrNoRows {
		return false, nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to lock session: %w", err)
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM session_attendees WHERE session_id = $1 AND user_id = $2)`,
		sessionID, userID).Scan(&exists)
	if err != nil {
		return false, nil, fmt.Errorf("failed to check session membership: %w", err)
	}
	if exists {
		return false, nil, entity.ErrAlreadyJoined
	}

	var attendeeCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_attendees WHERE session_id = $1 AND role = 'attendee'`,
		sessionID).Scan(&attendeeCount)
	if err != nil {
		return false, nil, fmt.Errorf("failed to count attendees: %w", err)
	}

	role := "attendee"
	seated := attendeeCount < session.Capacity
	if !seated {
		role = "waitlist"
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_attendees (session_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		sessionID, userID, role, time.Now())
	if err != nil {
		return false, nil, fmt.Errorf("failed to add session member: %w", err)
	}

	if err := r.loadMembers(ctx, tx, session); err != nil {
		return false, nil, err
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return seated, session, nil
}

// Leave removes the user and, if a seat freed up, promotes the waitlist
// head inside the same transaction.
func (r *sessionRepository) Leave(ctx context.Context, sessionID, userID int64) (int64, *entity.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	session, err := scanSessionRow(tx.QueryRowContext(ctx,
		`SELECT`+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, sessionID))
	if err == sql.ErrNoRows {
		return 0, nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to lock session: %w", err)
	}

	var role string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM session_attendees WHERE session_id = $1 AND user_id = $2 RETURNING role`,
		sessionID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		// Leaving a session the user never joined is a no-op.
		if err := r.loadMembers(ctx, tx, session); err != nil {
			return 0, nil, err
		}
		if err := tx.Commit(); err != nil {
			return 0, nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return 0, session, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to remove session member: %w", err)
	}

	var promoted int64
	if role == "attendee" {
		// Waitlist head takes the freed seat, preserving join order.
		err = tx.QueryRowContext(ctx, `
			UPDATE session_attendees SET role = 'attendee'
			WHERE position = (
				SELECT position FROM session_attendees
				WHERE session_id = $1 AND role = 'waitlist'
				ORDER BY position ASC
				LIMIT 1
			)
			RETURNING user_id`, sessionID).Scan(&promoted)
		if err != nil && err != sql.ErrNoRows {
			return 0, nil, fmt.Errorf("failed to promote waitlisted member: %w", err)
		}
	}

	if err := r.loadMembers(ctx, tx, session); err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return promoted, session, nil
}

// FindConflicts matches sessions of the event whose [start_time, end_time)
// window overlaps the given one and which share the room or the speaker.
// Back-to-back sessions (end == start) do not overlap.
func (r *sessionRepository) FindConflicts(ctx context.Context, eventID int64, start, end time.Time, room string, speakerID *int64, excludeID int64) ([]*entity.Session, []*entity.Session, error) {
	query := `
		SELECT` + sessionColumns + `
		FROM sessions
		WHERE event_id = $1
		  AND id != $2
		  AND status != 'cancelled'
		  AND start_time < $3
		  AND $4 < end_time
	`

	rows, err := r.db.QueryContext(ctx, query, eventID, excludeID, end, start)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query overlapping sessions: %w", err)
	}
	defer rows.Close()

	var roomConflicts, speakerConflicts []*entity.Session
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if room != "" && s.Room == room {
			roomConflicts = append(roomConflicts, s)
		}
		if speakerID != nil && s.SpeakerID != nil && *s.SpeakerID == *speakerID {
			speakerConflicts = append(speakerConflicts, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return roomConflicts, speakerConflicts, nil
}
