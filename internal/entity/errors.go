package entity

import "errors"

var (
	// Event errors
	ErrEventNotFound = errors.New("event not found")
	ErrEventDatePast = errors.New("event date cannot be in the past")

	// Ticket errors
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTicketInactive = errors.New("ticket is not active")

	// Registration errors
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("user already registered for this event")
	ErrInvalidTransition    = errors.New("invalid registration status transition")

	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrAlreadyJoined    = errors.New("user already joined this session")
	ErrScheduleConflict = errors.New("session schedule conflict")
	ErrSessionTimeOrder = errors.New("session start time must be before end time")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidEmail      = errors.New("invalid email format")

	// General errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabaseError = errors.New("database error")
)
