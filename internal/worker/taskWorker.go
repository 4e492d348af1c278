package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ds124wfegd/confhub/internal/service"
	"github.com/ds124wfegd/confhub/pkg/queue"
)

// TaskWorker потребляет задачи из очереди и вызывает сервисы
type TaskWorker struct {
	queue               queue.Queue
	registrationService service.RegistrationService
	userService         service.UserService
	log                 *logrus.Logger
}

// NewTaskWorker создает новый обработчик задач
func NewTaskWorker(
	q queue.Queue,
	registrationService service.RegistrationService,
	userService service.UserService,
	log *logrus.Logger,
) *TaskWorker {
	return &TaskWorker{
		queue:               q,
		registrationService: registrationService,
		userService:         userService,
		log:                 log,
	}
}

// Start подписывает воркер на очередь задач
func (w *TaskWorker) Start(ctx context.Context) error {
	if w.queue == nil {
		w.log.Warn("очередь задач не настроена, воркер не запущен")
		return nil
	}
	return w.queue.Subscribe(ctx, w.HandleTask)
}

// HandleTask обрабатывает задачу
func (w *TaskWorker) HandleTask(task *queue.Task) error {
	w.log.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"type":     task.Type,
		"attempts": fmt.Sprintf("%d/%d", task.Attempts, task.MaxRetries),
	}).Info("обработка задачи")

	switch task.Type {
	case queue.TaskTypeExpireRegistration:
		return w.handleExpireRegistration(task)
	case queue.TaskTypeSendNotification:
		return w.handleSendNotification(task)
	case queue.TaskTypeCleanupStale:
		return w.handleCleanupStale(task)
	default:
		return fmt.Errorf("неизвестный тип задачи: %s", task.Type)
	}
}

// handleExpireRegistration отменяет неоплаченную регистрацию по таймауту.
// Сервис сам пропускает оплаченные и отмененные записи, поэтому задачу
// можно безопасно повторять.
func (w *TaskWorker) handleExpireRegistration(task *queue.Task) error {
	ctx := context.Background()

	registrationID := task.GetInt64("registration_id")
	if registrationID == 0 {
		return fmt.Errorf("неверный registration_id в данных задачи")
	}

	if err := w.registrationService.ExpireRegistration(ctx, registrationID); err != nil {
		return fmt.Errorf("не удалось истечь регистрацию %d: %v", registrationID, err)
	}

	return nil
}

// handleSendNotification логирует уведомления пользователям.
// Каналы доставки (email, push) подключаются здесь же.
func (w *TaskWorker) handleSendNotification(task *queue.Task) error {
	ctx := context.Background()

	notificationType := task.GetString("notification_type")
	if notificationType == "" {
		return fmt.Errorf("неверный notification_type в данных задачи")
	}

	switch notificationType {
	case "registration_promoted":
		userID := task.GetInt64("user_id")
		user, err := w.userService.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("не удалось получить пользователя %d: %v", userID, err)
		}

		w.log.WithFields(logrus.Fields{
			"user_id":         user.ID,
			"email":           user.Email,
			"registration_id": task.GetInt64("registration_id"),
		}).Info("уведомление: место из листа ожидания получено")
		return nil
	default:
		return fmt.Errorf("неизвестный тип уведомления: %s", notificationType)
	}
}

// handleCleanupStale выполняет массовую отмену просроченных регистраций
func (w *TaskWorker) handleCleanupStale(task *queue.Task) error {
	ctx := context.Background()

	olderThan := time.Duration(task.GetInt64("older_than_minutes")) * time.Minute

	cancelled, err := w.registrationService.CancelStaleRegistrations(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("не удалось выполнить зачистку: %v", err)
	}

	w.log.WithField("cancelled", cancelled).Info("массовая зачистка завершена")
	return nil
}
