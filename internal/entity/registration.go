package entity

import (
	"time"
)

type RegistrationStatus string

const (
	RegistrationStatusPending    RegistrationStatus = "pending"
	RegistrationStatusConfirmed  RegistrationStatus = "confirmed"
	RegistrationStatusWaitlisted RegistrationStatus = "waitlisted"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Registration связывает пользователя, мероприятие и билет.
// На пару (event, user) допускается не более одной неотмененной записи.
// CreatedAt служит ключом порядка в листе ожидания.
type Registration struct {
	ID            int64              `json:"id" db:"id"`
	EventID       int64              `json:"event_id" db:"event_id"`
	UserID        int64              `json:"user_id" db:"user_id"`
	TicketID      int64              `json:"ticket_id" db:"ticket_id"`
	Status        RegistrationStatus `json:"status" db:"status"`
	PaymentStatus PaymentStatus      `json:"payment_status" db:"payment_status"`
	Amount        int64              `json:"amount" db:"amount"` // цена зафиксирована в момент запроса
	QRCode        string             `json:"qr_code" db:"qr_code"`
	CheckedIn     bool               `json:"checked_in" db:"checked_in"`
	CheckInTime   *time.Time         `json:"check_in_time,omitempty" db:"check_in_time"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Машина состояний: pending|waitlisted -> confirmed|cancelled,
// confirmed -> cancelled, cancelled - терминальный статус.
func (r *Registration) CanTransitionTo(next RegistrationStatus) bool {
	switch r.Status {
	case RegistrationStatusPending:
		return next == RegistrationStatusConfirmed || next == RegistrationStatusCancelled
	case RegistrationStatusWaitlisted:
		return next == RegistrationStatusConfirmed || next == RegistrationStatusCancelled
	case RegistrationStatusConfirmed:
		return next == RegistrationStatusCancelled
	case RegistrationStatusCancelled:
		return false
	default:
		return false
	}
}

// IsActive сообщает, занимает ли запись место или очередь
// (любой статус кроме cancelled)
func (r *Registration) IsActive() bool {
	return r.Status != RegistrationStatusCancelled
}

// HoldsSeat сообщает, удерживает ли регистрация единицу инвентаря
func (r *Registration) HoldsSeat() bool {
	return r.Status == RegistrationStatusPending || r.Status == RegistrationStatusConfirmed
}
