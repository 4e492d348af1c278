package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	repository "github.com/ds124wfegd/confhub/internal/database/postgres"
	"github.com/ds124wfegd/confhub/internal/entity"
)

// CreateEventRequest представляет данные для создания мероприятия
type CreateEventRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	OrganizerID int64             `json:"organizer_id" binding:"required"`
	StartDate   entity.CustomTime `json:"start_date" binding:"required"`
	EndDate     entity.CustomTime `json:"end_date" binding:"required"`
	Timezone    string            `json:"timezone"`
	Category    string            `json:"category"`
}

// UpdateEventRequest представляет данные для изменения мероприятия
type UpdateEventRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	StartDate   *entity.CustomTime `json:"start_date"`
	EndDate     *entity.CustomTime `json:"end_date"`
	Timezone    *string            `json:"timezone"`
	Category    *string            `json:"category"`
	Status      *string            `json:"status"`
}

type eventService struct {
	eventRepo repository.EventRepository
	userRepo  repository.UserRepository
	log       *logrus.Logger
}

// NewEventService создает новый экземпляр EventService
func NewEventService(eventRepo repository.EventRepository, userRepo repository.UserRepository, log *logrus.Logger) EventService {
	return &eventService{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		log:       log,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error) {
	if _, err := s.userRepo.GetByID(ctx, req.OrganizerID); err != nil {
		return nil, fmt.Errorf("организатор не найден: %w", err)
	}

	start, end := req.StartDate.Time, req.EndDate.Time
	if !start.Before(end) {
		return nil, fmt.Errorf("начало мероприятия должно быть раньше окончания")
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	event := &entity.Event{
		Title:       req.Title,
		Description: req.Description,
		OrganizerID: req.OrganizerID,
		StartDate:   start,
		EndDate:     end,
		Timezone:    timezone,
		Category:    req.Category,
		Status:      entity.EventStatusDraft,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("не удалось создать мероприятие: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"title":    event.Title,
	}).Info("мероприятие создано")

	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id int64) (*entity.EventWithStats, error) {
	event, err := s.eventRepo.GetByIDWithStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("мероприятие не найдено: %w", err)
	}
	return event, nil
}

func (s *eventService) GetAllEvents(ctx context.Context) ([]*entity.Event, error) {
	return s.eventRepo.GetAll(ctx)
}

func (s *eventService) UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("мероприятие не найдено: %w", err)
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.StartDate != nil {
		event.StartDate = req.StartDate.Time
	}
	if req.EndDate != nil {
		event.EndDate = req.EndDate.Time
	}
	if req.Timezone != nil {
		event.Timezone = *req.Timezone
	}
	if req.Category != nil {
		event.Category = *req.Category
	}
	if req.Status != nil {
		event.Status = entity.EventStatus(*req.Status)
	}

	if !event.StartDate.Before(event.EndDate) {
		return nil, fmt.Errorf("начало мероприятия должно быть раньше окончания")
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("не удалось обновить мероприятие: %w", err)
	}

	return event, nil
}

// PublishEvent открывает регистрацию на мероприятие
func (s *eventService) PublishEvent(ctx context.Context, id int64) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("мероприятие не найдено: %w", err)
	}

	if !event.IsUpcoming() {
		return nil, fmt.Errorf("нельзя опубликовать прошедшее мероприятие: %w", entity.ErrEventDatePast)
	}

	event.Status = entity.EventStatusPublished
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("не удалось опубликовать мероприятие: %w", err)
	}

	s.log.WithField("event_id", event.ID).Info("мероприятие опубликовано")
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("не удалось удалить мероприятие: %w", err)
	}
	return nil
}
