package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ds124wfegd/confhub/internal/entity"
)

func newEventService(t *testing.T) (*fakeStore, EventService, *entity.User) {
	t.Helper()

	store := newFakeStore()
	eventRepo := &fakeEventRepo{s: store}
	userRepo := &fakeUserRepo{s: store}

	organizer := &entity.User{Email: "org@example.com", Name: "Organizer"}
	require.NoError(t, userRepo.Create(context.Background(), organizer))

	return store, NewEventService(eventRepo, userRepo, newTestLogger()), organizer
}

// TestCreateEvent тестирует создание мероприятия в статусе черновика
func TestCreateEvent(t *testing.T) {
	_, svc, organizer := newEventService(t)

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:       "GopherConf 2026",
		OrganizerID: organizer.ID,
		StartDate:   entity.CustomTime{Time: time.Now().Add(30 * 24 * time.Hour)},
		EndDate:     entity.CustomTime{Time: time.Now().Add(31 * 24 * time.Hour)},
	})
	require.NoError(t, err)

	// Регистрация открывается только явной публикацией
	assert.Equal(t, entity.EventStatusDraft, event.Status)
	assert.Equal(t, "UTC", event.Timezone)
	assert.False(t, event.IsOpenForRegistration())
}

// TestCreateEventDateOrder тестирует отказ при start >= end
func TestCreateEventDateOrder(t *testing.T) {
	_, svc, organizer := newEventService(t)

	_, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:       "Broken",
		OrganizerID: organizer.ID,
		StartDate:   entity.CustomTime{Time: time.Now().Add(48 * time.Hour)},
		EndDate:     entity.CustomTime{Time: time.Now().Add(24 * time.Hour)},
	})
	assert.Error(t, err)
}

// TestPublishEvent тестирует открытие регистрации
func TestPublishEvent(t *testing.T) {
	_, svc, organizer := newEventService(t)

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:       "GopherConf 2026",
		OrganizerID: organizer.ID,
		StartDate:   entity.CustomTime{Time: time.Now().Add(30 * 24 * time.Hour)},
		EndDate:     entity.CustomTime{Time: time.Now().Add(31 * 24 * time.Hour)},
	})
	require.NoError(t, err)

	published, err := svc.PublishEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EventStatusPublished, published.Status)
	assert.True(t, published.IsOpenForRegistration())
}

// TestPublishPastEvent тестирует запрет публикации прошедшего мероприятия
func TestPublishPastEvent(t *testing.T) {
	store, svc, _ := newEventService(t)

	event := &entity.Event{
		Title:     "Last Year",
		Status:    entity.EventStatusDraft,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, (&fakeEventRepo{s: store}).Create(context.Background(), event))

	_, err := svc.PublishEvent(context.Background(), event.ID)
	assert.ErrorIs(t, err, entity.ErrEventDatePast)
}
