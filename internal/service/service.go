package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/confhub/internal/entity"
)

type EventService interface {
	// Основные операции
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id int64) (*entity.EventWithStats, error)
	GetAllEvents(ctx context.Context) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error)
	PublishEvent(ctx context.Context, id int64) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// UserService defines the interface for user operations
type UserService interface {
	RegisterUser(ctx context.Context, req *RegisterUserRequest) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetAllUsers(ctx context.Context) ([]*entity.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// TicketService определяет операции с типами билетов и их доступностью
type TicketService interface {
	CreateTicket(ctx context.Context, req *CreateTicketRequest) (*entity.Ticket, error)
	GetTicket(ctx context.Context, id int64) (*entity.Ticket, error)
	GetEventTickets(ctx context.Context, eventID int64) ([]*entity.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, req *UpdateTicketRequest) (*entity.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error

	// GetAvailability возвращает снимок доступности: свободные билеты,
	// длина листа ожидания и актуальная цена
	GetAvailability(ctx context.Context, ticketID int64) (*entity.TicketAvailability, error)
}

// RegistrationService определяет интерфейс для операций с регистрациями
type RegistrationService interface {
	// Основные операции
	Register(ctx context.Context, req *RegisterRequest) (*entity.Registration, error)
	GetRegistration(ctx context.Context, id int64) (*entity.Registration, error)
	GetEventRegistrations(ctx context.Context, eventID int64, status entity.RegistrationStatus, limit, offset int) ([]*entity.Registration, int, error)
	GetUserRegistrations(ctx context.Context, userID int64) ([]*entity.Registration, error)

	// Жизненный цикл
	CancelRegistration(ctx context.Context, id int64) (*entity.Registration, error)
	ConfirmPayment(ctx context.Context, id int64) (*entity.Registration, error)
	Checkin(ctx context.Context, id int64) (*entity.Registration, error)
	CheckinByQR(ctx context.Context, qrCode string) (*entity.Registration, error)

	// Операции истечения срока
	ExpireRegistration(ctx context.Context, id int64) error
	CancelStaleRegistrations(ctx context.Context, olderThan time.Duration) (int, error)
}

// SessionService определяет интерфейс для операций с расписанием сессий
type SessionService interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*entity.Session, []entity.Conflict, error)
	GetSession(ctx context.Context, id int64) (*entity.Session, error)
	GetEventSessions(ctx context.Context, eventID int64) ([]*entity.Session, error)
	UpdateSession(ctx context.Context, id int64, req *UpdateSessionRequest) (*entity.Session, []entity.Conflict, error)
	DeleteSession(ctx context.Context, id int64) error

	// Посещение
	JoinSession(ctx context.Context, sessionID, userID int64) (*entity.Session, bool, error)
	LeaveSession(ctx context.Context, sessionID, userID int64) (*entity.Session, error)

	// CheckConflicts проверяет окно [start, end) на пересечения по
	// помещению и спикеру, не изменяя расписание
	CheckConflicts(ctx context.Context, req *CheckConflictsRequest) ([]entity.Conflict, error)
}

// CapacityNotifier рассылает снимки доступности подписчикам реального времени
type CapacityNotifier interface {
	Broadcast(update *entity.CapacityUpdate)
}

// AvailabilityCache - кэш короткоживущих снимков доступности билетов
type AvailabilityCache interface {
	Get(ctx context.Context, ticketID int64) (*entity.TicketAvailability, error)
	Set(ctx context.Context, availability *entity.TicketAvailability) error
	Invalidate(ctx context.Context, ticketID int64) error
}
