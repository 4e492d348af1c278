package notifier

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ds124wfegd/confhub/internal/entity"
)

// capturingPublisher собирает опубликованные сообщения вместо RabbitMQ
type capturingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	routingKey string
	payload    interface{}
}

func (p *capturingPublisher) Publish(_ context.Context, routingKey string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{routingKey: routingKey, payload: message})
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// TestRoutingKey тестирует построение ключей маршрутизации
func TestRoutingKey(t *testing.T) {
	tests := []struct {
		name     string
		update   *entity.CapacityUpdate
		expected string
	}{
		{
			name:     "ticket update routes by event",
			update:   &entity.CapacityUpdate{ResourceType: entity.ResourceTypeTicket, ResourceID: 7, EventID: 3},
			expected: "event.3",
		},
		{
			name:     "session update routes by session",
			update:   &entity.CapacityUpdate{ResourceType: entity.ResourceTypeSession, ResourceID: 7, EventID: 3},
			expected: "session.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RoutingKey(tt.update))
		})
	}
}

// TestBroadcastAndStop тестирует доставку событий и дослание буфера при остановке
func TestBroadcastAndStop(t *testing.T) {
	publisher := &capturingPublisher{}
	notifier := NewCapacityNotifier(publisher, 16, testLogger())
	notifier.Start(context.Background())

	for i := int64(1); i <= 5; i++ {
		notifier.Broadcast(&entity.CapacityUpdate{
			ResourceType: entity.ResourceTypeTicket,
			ResourceID:   i,
			EventID:      1,
			Available:    int(i),
		})
	}

	notifier.Stop()

	messages := publisher.published()
	require.Len(t, messages, 5)
	assert.Equal(t, "event.1", messages[0].routingKey)
	assert.Zero(t, notifier.Dropped())
}

// TestBroadcastNeverBlocks тестирует отбрасывание событий при переполнении
// буфера: вызывающий не должен ждать
func TestBroadcastNeverBlocks(t *testing.T) {
	// Notifier не запущен - буфер никто не вычитывает
	notifier := NewCapacityNotifier(&capturingPublisher{}, 2, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			notifier.Broadcast(&entity.CapacityUpdate{
				ResourceType: entity.ResourceTypeTicket,
				ResourceID:   int64(i),
				EventID:      1,
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast заблокировался на переполненном буфере")
	}

	assert.Equal(t, int64(8), notifier.Dropped())
}

// TestBroadcastSetsEmittedAt тестирует проставление метки времени
func TestBroadcastSetsEmittedAt(t *testing.T) {
	publisher := &capturingPublisher{}
	notifier := NewCapacityNotifier(publisher, 4, testLogger())
	notifier.Start(context.Background())

	notifier.Broadcast(&entity.CapacityUpdate{
		ResourceType: entity.ResourceTypeTicket,
		ResourceID:   1,
		EventID:      1,
	})
	notifier.Stop()

	messages := publisher.published()
	require.Len(t, messages, 1)
	update, ok := messages[0].payload.(*entity.CapacityUpdate)
	require.True(t, ok)
	assert.False(t, update.EmittedAt.IsZero())
}

// TestBroadcastNilUpdate тестирует, что nil событие игнорируется
func TestBroadcastNilUpdate(t *testing.T) {
	publisher := &capturingPublisher{}
	notifier := NewCapacityNotifier(publisher, 4, testLogger())
	notifier.Start(context.Background())

	notifier.Broadcast(nil)
	notifier.Stop()

	assert.Empty(t, publisher.published())
}
