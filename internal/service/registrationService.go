package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "github.com/ds124wfegd/confhub/internal/database/postgres"
	"github.com/ds124wfegd/confhub/internal/entity"
)

// RegisterRequest представляет данные для регистрации на мероприятие
type RegisterRequest struct {
	EventID  int64 `json:"event_id" binding:"required"`
	UserID   int64 `json:"user_id" binding:"required"`
	TicketID int64 `json:"ticket_id" binding:"required"`
}

// TaskPublisher интерфейс для публикации задач в очередь
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task представляет задачу для очереди
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

// Константы типов задач
const (
	TaskTypeExpireRegistration = "expire_registration"
	TaskTypeSendNotification   = "send_notification"
	TaskTypeCleanupStale       = "cleanup_stale"
	TaskTypeEventReminder      = "event_reminder"
)

type registrationService struct {
	registrationRepo repository.RegistrationRepository
	ticketRepo       repository.TicketRepository
	eventRepo        repository.EventRepository
	userRepo         repository.UserRepository
	queue            TaskPublisher
	notifier         CapacityNotifier
	cache            AvailabilityCache
	paymentTimeout   time.Duration
	log              *logrus.Logger
}

// NewRegistrationService создает новый экземпляр RegistrationService
func NewRegistrationService(
	registrationRepo repository.RegistrationRepository,
	ticketRepo repository.TicketRepository,
	eventRepo repository.EventRepository,
	userRepo repository.UserRepository,
	queue TaskPublisher,
	notifier CapacityNotifier,
	cache AvailabilityCache,
	paymentTimeout time.Duration,
	log *logrus.Logger,
) RegistrationService {
	if paymentTimeout <= 0 {
		paymentTimeout = 30 * time.Minute
	}
	return &registrationService{
		registrationRepo: registrationRepo,
		ticketRepo:       ticketRepo,
		eventRepo:        eventRepo,
		userRepo:         userRepo,
		queue:            queue,
		notifier:         notifier,
		cache:            cache,
		paymentTimeout:   paymentTimeout,
		log:              log,
	}
}

// Register создает регистрацию на мероприятие. Если билеты распроданы,
// пользователь попадает в лист ожидания; цена фиксируется на момент запроса.
func (s *registrationService) Register(ctx context.Context, req *RegisterRequest) (*entity.Registration, error) {
	// Валидация мероприятия
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("мероприятие не найдено: %w", err)
	}

	if !event.IsOpenForRegistration() {
		return nil, fmt.Errorf("регистрация на мероприятие %q закрыта", event.Title)
	}

	// Валидация билета
	ticket, err := s.ticketRepo.GetByID(ctx, req.TicketID)
	if err != nil {
		return nil, fmt.Errorf("билет не найден: %w", err)
	}

	if ticket.EventID != req.EventID {
		return nil, fmt.Errorf("билет не относится к этому мероприятию")
	}

	if !ticket.IsActive {
		return nil, fmt.Errorf("продажа билетов этого типа остановлена: %w", entity.ErrTicketInactive)
	}

	// Валидация пользователя
	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("пользователь не найден: %w", err)
	}

	// Проверка существующей регистрации
	existing, err := s.registrationRepo.GetActiveByEventAndUser(ctx, req.EventID, req.UserID)
	if err != nil && err != entity.ErrRegistrationNotFound {
		return nil, fmt.Errorf("ошибка при проверке существующих регистраций: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("у вас уже есть регистрация на это мероприятие: %w", entity.ErrAlreadyRegistered)
	}

	// Цена фиксируется сейчас, а не в момент оплаты
	now := time.Now()
	amount := ticket.CurrentPrice(now)

	// Атомарная попытка занять единицу инвентаря
	reserved, err := s.ticketRepo.Reserve(ctx, req.TicketID)
	if err != nil {
		return nil, fmt.Errorf("не удалось зарезервировать билет: %w", err)
	}

	status := entity.RegistrationStatusPending
	if !reserved {
		status = entity.RegistrationStatusWaitlisted
	}

	registration := &entity.Registration{
		EventID:       req.EventID,
		UserID:        req.UserID,
		TicketID:      req.TicketID,
		Status:        status,
		PaymentStatus: entity.PaymentStatusPending,
		Amount:        amount,
		QRCode:        fmt.Sprintf("confhub-reg-%d-%s", user.ID, uuid.NewString()),
	}

	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		// Гонка на уникальном индексе (event, user): единица не должна
		// зависнуть - ее получает лист ожидания, иначе она возвращается
		if reserved {
			s.compensateReservation(ctx, req.EventID, req.TicketID)
		}
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, fmt.Errorf("у вас уже есть регистрация на это мероприятие: %w", entity.ErrAlreadyRegistered)
		}
		return nil, fmt.Errorf("не удалось создать регистрацию: %w", err)
	}

	// Задача на автоотмену неоплаченной регистрации
	if status == entity.RegistrationStatusPending && s.queue != nil {
		task := &Task{
			Type: TaskTypeExpireRegistration,
			Data: map[string]interface{}{
				"registration_id": registration.ID,
			},
			ExecuteAt: now.Add(s.paymentTimeout),
		}
		if err := s.queue.Publish(ctx, task); err != nil {
			s.log.WithError(err).WithField("registration_id", registration.ID).
				Error("не удалось запланировать истечение регистрации")
		}
	}

	s.invalidateAndBroadcast(ctx, req.TicketID, req.EventID)

	s.log.WithFields(logrus.Fields{
		"registration_id": registration.ID,
		"event_id":        req.EventID,
		"user_id":         req.UserID,
		"status":          registration.Status,
		"amount":          registration.Amount,
	}).Info("регистрация создана")

	return registration, nil
}

func (s *registrationService) GetRegistration(ctx context.Context, id int64) (*entity.Registration, error) {
	registration, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("регистрация не найдена: %w", err)
	}
	return registration, nil
}

func (s *registrationService) GetEventRegistrations(ctx context.Context, eventID int64, status entity.RegistrationStatus, limit, offset int) ([]*entity.Registration, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.registrationRepo.GetByEventID(ctx, eventID, status, limit, offset)
}

func (s *registrationService) GetUserRegistrations(ctx context.Context, userID int64) ([]*entity.Registration, error) {
	return s.registrationRepo.GetByUserID(ctx, userID)
}

// CancelRegistration отменяет регистрацию и продвигает старейшую запись
// из листа ожидания. Повторная отмена - no-op.
func (s *registrationService) CancelRegistration(ctx context.Context, id int64) (*entity.Registration, error) {
	cancelled, promoted, err := s.registrationRepo.CancelAndPromote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("не удалось отменить регистрацию: %w", err)
	}

	if promoted != nil {
		s.log.WithFields(logrus.Fields{
			"cancelled_id": cancelled.ID,
			"promoted_id":  promoted.ID,
			"ticket_id":    promoted.TicketID,
		}).Info("регистрация из листа ожидания продвинута")

		s.notifyPromoted(ctx, promoted)
	}

	s.invalidateAndBroadcast(ctx, cancelled.TicketID, cancelled.EventID)

	return cancelled, nil
}

// notifyPromoted ставит задачу на уведомление продвинутого пользователя
func (s *registrationService) notifyPromoted(ctx context.Context, promoted *entity.Registration) {
	if s.queue == nil {
		return
	}

	task := &Task{
		Type: TaskTypeSendNotification,
		Data: map[string]interface{}{
			"notification_type": "registration_promoted",
			"registration_id":   promoted.ID,
			"user_id":           promoted.UserID,
		},
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		s.log.WithError(err).Error("не удалось отправить уведомление о продвижении")
	}
}

// compensateReservation пристраивает единицу, зарезервированную неудавшейся
// регистрацией: место получает старейшая запись из листа ожидания, а при
// пустом листе единица возвращается в инвентарь. Освобождение без попытки
// продвижения оставило бы очередь стоять при свободном месте.
func (s *registrationService) compensateReservation(ctx context.Context, eventID, ticketID int64) {
	promoted, err := s.registrationRepo.PromoteOldestWaitlisted(ctx, eventID, ticketID)
	if err != nil {
		s.log.WithError(err).Error("не удалось продвинуть лист ожидания после неудачной регистрации")
	}

	if promoted != nil {
		s.log.WithFields(logrus.Fields{
			"promoted_id": promoted.ID,
			"ticket_id":   ticketID,
		}).Info("зарезервированная единица передана листу ожидания")
		s.notifyPromoted(ctx, promoted)
	} else {
		if releaseErr := s.ticketRepo.Release(ctx, ticketID); releaseErr != nil {
			s.log.WithError(releaseErr).Error("не удалось вернуть билет после неудачной регистрации")
		}
	}

	s.invalidateAndBroadcast(ctx, ticketID, eventID)
}

// ConfirmPayment помечает регистрацию оплаченной и подтверждает ее
func (s *registrationService) ConfirmPayment(ctx context.Context, id int64) (*entity.Registration, error) {
	registration, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("регистрация не найдена: %w", err)
	}

	if registration.Status == entity.RegistrationStatusCancelled {
		return nil, fmt.Errorf("регистрация отменена, оплата невозможна: %w", entity.ErrInvalidTransition)
	}

	if err := s.registrationRepo.UpdatePaymentStatus(ctx, id, entity.PaymentStatusPaid); err != nil {
		return nil, fmt.Errorf("не удалось обновить статус оплаты: %w", err)
	}

	if registration.Status == entity.RegistrationStatusPending {
		if err := s.registrationRepo.UpdateStatus(ctx, id, entity.RegistrationStatusConfirmed); err != nil {
			return nil, fmt.Errorf("не удалось подтвердить регистрацию: %w", err)
		}
	}

	return s.registrationRepo.GetByID(ctx, id)
}

// Checkin отмечает посещение по идентификатору регистрации. Оплата не
// проверяется: вопросы оплаты на входе решает организатор, а не турникет.
func (s *registrationService) Checkin(ctx context.Context, id int64) (*entity.Registration, error) {
	registration, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("регистрация не найдена: %w", err)
	}

	return s.markCheckedIn(ctx, registration)
}

// CheckinByQR отмечает посещение по отсканированному QR-коду
func (s *registrationService) CheckinByQR(ctx context.Context, qrCode string) (*entity.Registration, error) {
	registration, err := s.findByQRCode(ctx, qrCode)
	if err != nil {
		return nil, err
	}

	return s.markCheckedIn(ctx, registration)
}

func (s *registrationService) markCheckedIn(ctx context.Context, registration *entity.Registration) (*entity.Registration, error) {
	if !registration.IsActive() {
		return nil, fmt.Errorf("регистрация отменена, вход невозможен: %w", entity.ErrInvalidTransition)
	}

	if registration.CheckedIn {
		return registration, nil
	}

	updated, err := s.registrationRepo.Checkin(ctx, registration.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("не удалось отметить посещение: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"registration_id": updated.ID,
		"event_id":        updated.EventID,
	}).Info("посещение отмечено")

	return updated, nil
}

// findByQRCode разбирает payload вида confhub-reg-{user}-{uuid} и находит
// регистрацию пользователя
func (s *registrationService) findByQRCode(ctx context.Context, qrCode string) (*entity.Registration, error) {
	rest, ok := strings.CutPrefix(qrCode, "confhub-reg-")
	if !ok {
		return nil, fmt.Errorf("неверный формат QR-кода: %w", entity.ErrInvalidInput)
	}

	userPart, _, ok := strings.Cut(rest, "-")
	if !ok {
		return nil, fmt.Errorf("неверный формат QR-кода: %w", entity.ErrInvalidInput)
	}

	var userID int64
	if _, err := fmt.Sscanf(userPart, "%d", &userID); err != nil {
		return nil, fmt.Errorf("неверный формат QR-кода: %w", entity.ErrInvalidInput)
	}

	registrations, err := s.registrationRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("не удалось найти регистрации пользователя: %w", err)
	}

	for _, reg := range registrations {
		if reg.QRCode == qrCode {
			return reg, nil
		}
	}

	return nil, fmt.Errorf("регистрация по QR-коду не найдена: %w", entity.ErrRegistrationNotFound)
}

// ExpireRegistration отменяет неоплаченную регистрацию по истечении срока.
// Оплаченные и уже отмененные регистрации пропускаются.
func (s *registrationService) ExpireRegistration(ctx context.Context, id int64) error {
	registration, err := s.registrationRepo.GetByID(ctx, id)
	if err != nil {
		if err == entity.ErrRegistrationNotFound {
			return nil
		}
		return fmt.Errorf("не удалось получить регистрацию %d: %w", id, err)
	}

	if registration.Status != entity.RegistrationStatusPending {
		s.log.WithFields(logrus.Fields{
			"registration_id": id,
			"status":          registration.Status,
		}).Debug("регистрация больше не в статусе ожидания, истечение пропущено")
		return nil
	}

	if registration.PaymentStatus == entity.PaymentStatusPaid {
		return nil
	}

	if _, err := s.CancelRegistration(ctx, id); err != nil {
		return fmt.Errorf("не удалось истечь регистрацию %d: %w", id, err)
	}

	s.log.WithField("registration_id", id).Info("неоплаченная регистрация отменена по таймауту")
	return nil
}

// CancelStaleRegistrations - страховочная зачистка для задач,
// потерянных очередью
func (s *registrationService) CancelStaleRegistrations(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = s.paymentTimeout
	}

	stale, err := s.registrationRepo.GetStalePending(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("не удалось получить просроченные регистрации: %w", err)
	}

	cancelled := 0
	for _, reg := range stale {
		if err := s.ExpireRegistration(ctx, reg.ID); err != nil {
			s.log.WithError(err).WithField("registration_id", reg.ID).
				Error("не удалось отменить просроченную регистрацию")
			continue
		}
		cancelled++
	}

	return cancelled, nil
}

// invalidateAndBroadcast сбрасывает кэш доступности и рассылает свежий снимок
func (s *registrationService) invalidateAndBroadcast(ctx context.Context, ticketID, eventID int64) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ticketID); err != nil {
			s.log.WithError(err).Warn("не удалось сбросить кэш доступности")
		}
	}

	if s.notifier == nil {
		return
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		s.log.WithError(err).Warn("не удалось получить билет для рассылки")
		return
	}

	waitlisted, err := s.ticketRepo.CountWaitlisted(ctx, ticketID)
	if err != nil {
		s.log.WithError(err).Warn("не удалось посчитать лист ожидания")
		waitlisted = 0
	}

	s.notifier.Broadcast(&entity.CapacityUpdate{
		ResourceType:   entity.ResourceTypeTicket,
		ResourceID:     ticketID,
		EventID:        eventID,
		Available:      ticket.Available(),
		WaitlistLength: waitlisted,
		EmittedAt:      time.Now(),
	})
}
