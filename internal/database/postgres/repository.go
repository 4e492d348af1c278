package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/confhub/internal/entity"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id int64) (*entity.Event, error)
	GetByIDWithStats(ctx context.Context, id int64) (*entity.EventWithStats, error)
	GetAll(ctx context.Context) ([]*entity.Event, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id int64) error
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	GetByID(ctx context.Context, id int64) (*entity.Ticket, error)
	GetByEventID(ctx context.Context, eventID int64) ([]*entity.Ticket, error)
	Update(ctx context.Context, ticket *entity.Ticket) error
	Delete(ctx context.Context, id int64) error

	// Reserve atomically increments sold if a unit is available.
	// Returns true when the unit was taken, false when the ticket is sold out.
	Reserve(ctx context.Context, id int64) (bool, error)
	// Release decrements sold, floored at zero.
	Release(ctx context.Context, id int64) error
	// CountWaitlisted returns the number of waitlisted registrations for the ticket.
	CountWaitlisted(ctx context.Context, id int64) (int, error)
}

type RegistrationRepository interface {
	Create(ctx context.Context, registration *entity.Registration) error
	GetByID(ctx context.Context, id int64) (*entity.Registration, error)
	GetActiveByEventAndUser(ctx context.Context, eventID, userID int64) (*entity.Registration, error)
	GetByEventID(ctx context.Context, eventID int64, status entity.RegistrationStatus, limit, offset int) ([]*entity.Registration, int, error)
	GetByUserID(ctx context.Context, userID int64) ([]*entity.Registration, error)

	// UpdateStatus applies a status change, validating the transition.
	UpdateStatus(ctx context.Context, id int64, status entity.RegistrationStatus) error
	UpdatePaymentStatus(ctx context.Context, id int64, status entity.PaymentStatus) error
	Checkin(ctx context.Context, id int64, at time.Time) (*entity.Registration, error)

	// CancelAndPromote cancels a registration, releases its ticket unit and
	// promotes the oldest waitlisted registration in a single transaction.
	// Returns the cancelled registration and the promoted one (nil if none).
	CancelAndPromote(ctx context.Context, id int64) (*entity.Registration, *entity.Registration, error)

	// PromoteOldestWaitlisted hands an already-reserved ticket unit to the
	// oldest waitlisted registration for the (event, ticket) pair. The sold
	// counter is left untouched: the caller holds the unit. Returns nil when
	// the waitlist is empty.
	PromoteOldestWaitlisted(ctx context.Context, eventID, ticketID int64) (*entity.Registration, error)

	// GetStalePending returns pending registrations created before the cutoff,
	// used by the payment-timeout sweep.
	GetStalePending(ctx context.Context, before time.Time) ([]*entity.Registration, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id int64) (*entity.Session, error)
	GetByEventID(ctx context.Context, eventID int64) ([]*entity.Session, error)
	Update(ctx context.Context, session *entity.Session) error
	Delete(ctx context.Context, id int64) error

	// Join atomically adds the user to attendees or to the waitlist tail.
	// Returns true when the user got a seat, false when waitlisted.
	Join(ctx context.Context, sessionID, userID int64) (bool, *entity.Session, error)
	// Leave removes the user from either list and promotes the waitlist head
	// when a seat frees up. Returns the promoted user id (0 if none).
	Leave(ctx context.Context, sessionID, userID int64) (int64, *entity.Session, error)

	// FindConflicts returns sessions of the same event overlapping the
	// [start, end) window and sharing the given room or speaker.
	FindConflicts(ctx context.Context, eventID int64, start, end time.Time, room string, speakerID *int64, excludeID int64) ([]*entity.Session, []*entity.Session, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetAll(ctx context.Context) ([]*entity.User, error)
	Delete(ctx context.Context, id int64) error
}
