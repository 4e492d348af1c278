package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestOverlaps тестирует пересечение полуоткрытых интервалов [start, end)
func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time {
		return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	}

	tests := []struct {
		name     string
		aStart   time.Time
		aEnd     time.Time
		bStart   time.Time
		bEnd     time.Time
		expected bool
	}{
		{
			name:   "identical intervals overlap",
			aStart: at(0, 0), aEnd: at(1, 0),
			bStart: at(0, 0), bEnd: at(1, 0),
			expected: true,
		},
		{
			name:   "partial overlap",
			aStart: at(0, 0), aEnd: at(1, 0),
			bStart: at(0, 30), bEnd: at(1, 30),
			expected: true,
		},
		{
			name:   "containment overlaps",
			aStart: at(0, 0), aEnd: at(3, 0),
			bStart: at(1, 0), bEnd: at(2, 0),
			expected: true,
		},
		{
			name:   "back to back does not overlap",
			aStart: at(0, 0), aEnd: at(1, 0),
			bStart: at(1, 0), bEnd: at(2, 0),
			expected: false,
		},
		{
			name:   "back to back reversed does not overlap",
			aStart: at(1, 0), aEnd: at(2, 0),
			bStart: at(0, 0), bEnd: at(1, 0),
			expected: false,
		},
		{
			name:   "disjoint intervals",
			aStart: at(0, 0), aEnd: at(1, 0),
			bStart: at(2, 0), bEnd: at(3, 0),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// Пересечение симметрично
			assert.Equal(t, tt.expected, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestHasFreeSeats(t *testing.T) {
	assert.True(t, (&Session{Capacity: 30, Registered: 29}).HasFreeSeats())
	assert.False(t, (&Session{Capacity: 30, Registered: 30}).HasFreeSeats())
}

// TestConflictConstructors тестирует построение описаний конфликтов
func TestConflictConstructors(t *testing.T) {
	existing := &Session{ID: 7, Title: "Keynote", Room: "Main Hall"}

	venue := VenueConflict("Main Hall", existing)
	assert.Equal(t, ConflictTypeVenue, venue.Type)
	assert.Contains(t, venue.Message, "Main Hall")
	assert.Contains(t, venue.Message, "Keynote")
	assert.Equal(t, existing, venue.Session)

	speaker := SpeakerConflict(existing)
	assert.Equal(t, ConflictTypeSpeaker, speaker.Type)
	assert.Contains(t, speaker.Message, "Keynote")
}
