package entity

import (
	"time"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusArchived  EventStatus = "archived"
	EventStatusCancelled EventStatus = "cancelled"
)

type Event struct {
	ID          int64       `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	OrganizerID int64       `json:"organizer_id" db:"organizer_id"`
	StartDate   time.Time   `json:"start_date" db:"start_date"`
	EndDate     time.Time   `json:"end_date" db:"end_date"`
	Timezone    string      `json:"timezone" db:"timezone"`
	Category    string      `json:"category" db:"category"`
	Status      EventStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// EventWithStats расширяет Event агрегированными данными по билетам и сессиям
type EventWithStats struct {
	Event
	TicketsTotal    int `json:"tickets_total"`
	TicketsSold     int `json:"tickets_sold"`
	SessionsCount   int `json:"sessions_count"`
	Registrations   int `json:"registrations"`
	WaitlistedCount int `json:"waitlisted_count"`
}

// IsUpcoming проверяет, не началось ли еще мероприятие
func (e *Event) IsUpcoming() bool {
	return e.StartDate.After(time.Now())
}

// IsOpenForRegistration проверяет, открыта ли регистрация на мероприятие
func (e *Event) IsOpenForRegistration() bool {
	return e.Status == EventStatusPublished && e.EndDate.After(time.Now())
}
