package entity

import (
	"fmt"
	"time"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Session описывает доклад/секцию внутри мероприятия.
// Инвариант: Registered == len(Attendees) и Registered <= Capacity;
// пользователь находится максимум в одном из списков Attendees/Waitlist.
type Session struct {
	ID          int64         `json:"id" db:"id"`
	EventID     int64         `json:"event_id" db:"event_id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	SpeakerID   *int64        `json:"speaker_id,omitempty" db:"speaker_id"`
	SpeakerName string        `json:"speaker_name" db:"speaker_name"`
	Room        string        `json:"room" db:"room"`
	StartTime   time.Time     `json:"start_time" db:"start_time"`
	EndTime     time.Time     `json:"end_time" db:"end_time"`
	Capacity    int           `json:"capacity" db:"capacity"`
	Registered  int           `json:"registered" db:"registered"`
	Status      SessionStatus `json:"status" db:"status"`
	Attendees   []int64       `json:"attendees"`
	Waitlist    []int64       `json:"waitlist"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

type ConflictType string

const (
	ConflictTypeVenue   ConflictType = "venue"
	ConflictTypeSpeaker ConflictType = "speaker"
)

// Conflict - результат проверки расписания, не хранится в базе
type Conflict struct {
	Type    ConflictType `json:"type"`
	Message string       `json:"message"`
	Session *Session     `json:"session"`
}

// Overlaps проверяет пересечение двух полуоткрытых интервалов [start, end).
// Сессии, соприкасающиеся границами (10:00-11:00 и 11:00-12:00), не конфликтуют.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// HasFreeSeats проверяет наличие свободных мест
func (s *Session) HasFreeSeats() bool {
	return s.Registered < s.Capacity
}

// VenueConflict строит конфликт по помещению с существующей сессией
func VenueConflict(room string, existing *Session) Conflict {
	return Conflict{
		Type:    ConflictTypeVenue,
		Message: fmt.Sprintf("Room %q is already booked for %q", room, existing.Title),
		Session: existing,
	}
}

// SpeakerConflict строит конфликт по спикеру с существующей сессией
func SpeakerConflict(existing *Session) Conflict {
	return Conflict{
		Type:    ConflictTypeSpeaker,
		Message: fmt.Sprintf("Speaker is already scheduled for %q", existing.Title),
		Session: existing,
	}
}
