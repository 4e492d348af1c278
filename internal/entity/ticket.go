package entity

import (
	"time"
)

type TicketType string

const (
	TicketTypeGeneral  TicketType = "general"
	TicketTypeVIP      TicketType = "vip"
	TicketTypeWorkshop TicketType = "workshop"
	TicketTypeStudent  TicketType = "student"
	TicketTypeSpeaker  TicketType = "speaker"
)

// Ticket описывает тип билета на мероприятие.
// Quantity задается при создании и не меняется, Sold меняется только
// атомарными инкрементами/декрементами на стороне хранилища.
type Ticket struct {
	ID                int64      `json:"id" db:"id"`
	EventID           int64      `json:"event_id" db:"event_id"`
	Name              string     `json:"name" db:"name"`
	Type              TicketType `json:"type" db:"type"`
	Description       string     `json:"description" db:"description"`
	Price             int64      `json:"price" db:"price"` // цена в копейках
	EarlyBirdPrice    *int64     `json:"early_bird_price,omitempty" db:"early_bird_price"`
	EarlyBirdDeadline *time.Time `json:"early_bird_deadline,omitempty" db:"early_bird_deadline"`
	Quantity          int        `json:"quantity" db:"quantity"`
	Sold              int        `json:"sold" db:"sold"`
	MaxPerOrder       int        `json:"max_per_order" db:"max_per_order"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// TicketAvailability представляет снимок доступности билета
type TicketAvailability struct {
	TicketID       int64 `json:"ticket_id"`
	Quantity       int   `json:"quantity"`
	Sold           int   `json:"sold"`
	Available      int   `json:"available"`
	WaitlistLength int   `json:"waitlist_length"`
	CurrentPrice   int64 `json:"current_price"`
}

// CurrentPrice возвращает актуальную цену билета на момент now:
// early bird цена действует строго до дедлайна
func (t *Ticket) CurrentPrice(now time.Time) int64 {
	if t.EarlyBirdPrice != nil && t.EarlyBirdDeadline != nil && now.Before(*t.EarlyBirdDeadline) {
		return *t.EarlyBirdPrice
	}
	return t.Price
}

// Available возвращает количество свободных билетов
func (t *Ticket) Available() int {
	available := t.Quantity - t.Sold
	if available < 0 {
		return 0
	}
	return available
}

// IsSoldOut проверяет, распроданы ли все билеты
func (t *Ticket) IsSoldOut() bool {
	return t.Sold >= t.Quantity
}
