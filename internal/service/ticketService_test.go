package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ds124wfegd/confhub/internal/entity"
)

type ticketEnv struct {
	store *fakeStore
	cache *fakeCache
	svc   TicketService
	event *entity.Event
}

func newTicketEnv(t *testing.T) *ticketEnv {
	t.Helper()
	ctx := context.Background()

	store := newFakeStore()
	eventRepo := &fakeEventRepo{s: store}
	ticketRepo := &fakeTicketRepo{s: store}

	event := &entity.Event{
		Title:     "GopherConf 2026",
		Status:    entity.EventStatusPublished,
		StartDate: time.Now().Add(30 * 24 * time.Hour),
		EndDate:   time.Now().Add(31 * 24 * time.Hour),
	}
	require.NoError(t, eventRepo.Create(ctx, event))

	cache := newFakeCache()
	svc := NewTicketService(ticketRepo, eventRepo, cache, newTestLogger())

	return &ticketEnv{store: store, cache: cache, svc: svc, event: event}
}

// TestCreateTicket тестирует создание типа билета
func TestCreateTicket(t *testing.T) {
	env := newTicketEnv(t)

	ticket, err := env.svc.CreateTicket(context.Background(), &CreateTicketRequest{
		EventID:  env.event.ID,
		Name:     "Standard",
		Type:     entity.TicketTypeGeneral,
		Price:    500000,
		Quantity: 100,
	})
	require.NoError(t, err)

	assert.NotZero(t, ticket.ID)
	assert.True(t, ticket.IsActive)
	assert.Equal(t, 0, ticket.Sold)
	assert.Equal(t, 10, ticket.MaxPerOrder)
}

// TestCreateTicketEarlyBirdValidation тестирует правила early bird цены
func TestCreateTicketEarlyBirdValidation(t *testing.T) {
	env := newTicketEnv(t)
	deadline := entity.CustomTime{Time: time.Now().Add(24 * time.Hour)}

	tests := []struct {
		name      string
		earlyBird int64
		deadline  *entity.CustomTime
		wantErr   bool
	}{
		{"early bird below base price", 300000, &deadline, false},
		{"early bird without deadline", 300000, nil, true},
		{"early bird equals base price", 500000, &deadline, true},
		{"early bird above base price", 600000, &deadline, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			earlyBird := tt.earlyBird
			_, err := env.svc.CreateTicket(context.Background(), &CreateTicketRequest{
				EventID:           env.event.ID,
				Name:              "Early",
				Type:              entity.TicketTypeGeneral,
				Price:             500000,
				EarlyBirdPrice:    &earlyBird,
				EarlyBirdDeadline: tt.deadline,
				Quantity:          100,
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestUpdateTicketQuantityGuard тестирует запрет снижения количества
// ниже уже проданных билетов
func TestUpdateTicketQuantityGuard(t *testing.T) {
	env := newTicketEnv(t)

	ticket, err := env.svc.CreateTicket(context.Background(), &CreateTicketRequest{
		EventID:  env.event.ID,
		Name:     "Standard",
		Type:     entity.TicketTypeGeneral,
		Price:    500000,
		Quantity: 10,
	})
	require.NoError(t, err)

	env.store.tickets[ticket.ID].Sold = 5

	smaller := 3
	_, err = env.svc.UpdateTicket(context.Background(), ticket.ID, &UpdateTicketRequest{Quantity: &smaller})
	assert.Error(t, err)

	larger := 20
	updated, err := env.svc.UpdateTicket(context.Background(), ticket.ID, &UpdateTicketRequest{Quantity: &larger})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Quantity)
}

// TestGetAvailability тестирует снимок доступности и сквозное чтение кэша
func TestGetAvailability(t *testing.T) {
	env := newTicketEnv(t)

	ticket, err := env.svc.CreateTicket(context.Background(), &CreateTicketRequest{
		EventID:  env.event.ID,
		Name:     "Standard",
		Type:     entity.TicketTypeGeneral,
		Price:    500000,
		Quantity: 100,
	})
	require.NoError(t, err)

	env.store.tickets[ticket.ID].Sold = 30

	availability, err := env.svc.GetAvailability(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, availability.Available)
	assert.Equal(t, int64(500000), availability.CurrentPrice)

	// Снимок закэширован: следующее чтение отдает его, игнорируя хранилище
	env.store.tickets[ticket.ID].Sold = 50

	cached, err := env.svc.GetAvailability(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, cached.Available)

	// Инвалидация через изменение билета возвращает свежие данные
	active := true
	_, err = env.svc.UpdateTicket(context.Background(), ticket.ID, &UpdateTicketRequest{IsActive: &active})
	require.NoError(t, err)

	fresh, err := env.svc.GetAvailability(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, fresh.Available)
}

// TestGetAvailabilityEarlyBird тестирует актуальную цену в снимке
func TestGetAvailabilityEarlyBird(t *testing.T) {
	env := newTicketEnv(t)

	earlyBird := int64(300000)
	deadline := entity.CustomTime{Time: time.Now().Add(24 * time.Hour)}
	ticket, err := env.svc.CreateTicket(context.Background(), &CreateTicketRequest{
		EventID:           env.event.ID,
		Name:              "Early",
		Type:              entity.TicketTypeGeneral,
		Price:             500000,
		EarlyBirdPrice:    &earlyBird,
		EarlyBirdDeadline: &deadline,
		Quantity:          100,
	})
	require.NoError(t, err)

	availability, err := env.svc.GetAvailability(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, earlyBird, availability.CurrentPrice)
}
