package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ds124wfegd/confhub/internal/entity"
	"github.com/ds124wfegd/confhub/pkg/rabbitmq"
)

const defaultBufferSize = 256

// CapacityNotifier раздает снимки доступности через topic exchange.
// Broadcast не блокирует вызывающего: при переполнении буфера событие
// отбрасывается - подписчики всегда могут перечитать состояние через API.
type CapacityNotifier struct {
	publisher rabbitmq.Publisher
	updates   chan *entity.CapacityUpdate
	dropped   int64
	mu        sync.Mutex
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
	log       *logrus.Logger
}

func NewCapacityNotifier(publisher rabbitmq.Publisher, bufferSize int, log *logrus.Logger) *CapacityNotifier {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &CapacityNotifier{
		publisher: publisher,
		updates:   make(chan *entity.CapacityUpdate, bufferSize),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
		log:       log,
	}
}

// Start запускает фоновую публикацию событий
func (n *CapacityNotifier) Start(ctx context.Context) {
	go n.run(ctx)
}

func (n *CapacityNotifier) run(ctx context.Context) {
	defer close(n.doneChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopChan:
			// Дослать то, что уже в буфере
			for {
				select {
				case update := <-n.updates:
					n.publish(update)
				default:
					return
				}
			}
		case update := <-n.updates:
			n.publish(update)
		}
	}
}

func (n *CapacityNotifier) publish(update *entity.CapacityUpdate) {
	if n.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	routingKey := RoutingKey(update)
	if err := n.publisher.Publish(ctx, routingKey, update); err != nil {
		n.log.WithError(err).WithField("routing_key", routingKey).
			Warn("не удалось опубликовать событие доступности")
	}
}

// Broadcast ставит событие в буфер. Никогда не блокирует.
func (n *CapacityNotifier) Broadcast(update *entity.CapacityUpdate) {
	if update == nil {
		return
	}
	if update.EmittedAt.IsZero() {
		update.EmittedAt = time.Now()
	}

	select {
	case n.updates <- update:
	default:
		n.mu.Lock()
		n.dropped++
		dropped := n.dropped
		n.mu.Unlock()

		n.log.WithFields(logrus.Fields{
			"resource_type": update.ResourceType,
			"resource_id":   update.ResourceID,
			"dropped_total": dropped,
		}).Warn("буфер уведомлений переполнен, событие отброшено")
	}
}

// Dropped возвращает число отброшенных событий
func (n *CapacityNotifier) Dropped() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

// Stop завершает фоновую публикацию, дожидаясь опустошения буфера
func (n *CapacityNotifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopChan)
	})
	<-n.doneChan
}

// RoutingKey строит ключ маршрутизации вида event.{id} или session.{id}
func RoutingKey(update *entity.CapacityUpdate) string {
	if update.ResourceType == entity.ResourceTypeSession {
		return fmt.Sprintf("session.%d", update.ResourceID)
	}
	return fmt.Sprintf("event.%d", update.EventID)
}
