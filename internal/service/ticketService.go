package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	repository "github.com/ds124wfegd/confhub/internal/database/postgres"
	"github.com/ds124wfegd/confhub/internal/entity"
)

// CreateTicketRequest представляет данные для создания типа билета
type CreateTicketRequest struct {
	EventID           int64              `json:"event_id" binding:"required"`
	Name              string             `json:"name" binding:"required"`
	Type              entity.TicketType  `json:"type" binding:"required"`
	Description       string             `json:"description"`
	Price             int64              `json:"price" binding:"min=0"`
	EarlyBirdPrice    *int64             `json:"early_bird_price"`
	EarlyBirdDeadline *entity.CustomTime `json:"early_bird_deadline"`
	Quantity          int                `json:"quantity" binding:"required,min=1"`
	MaxPerOrder       int                `json:"max_per_order"`
}

// UpdateTicketRequest представляет данные для изменения типа билета
type UpdateTicketRequest struct {
	Name              *string            `json:"name"`
	Description       *string            `json:"description"`
	Price             *int64             `json:"price"`
	EarlyBirdPrice    *int64             `json:"early_bird_price"`
	EarlyBirdDeadline *entity.CustomTime `json:"early_bird_deadline"`
	Quantity          *int               `json:"quantity"`
	MaxPerOrder       *int               `json:"max_per_order"`
	IsActive          *bool              `json:"is_active"`
}

type ticketService struct {
	ticketRepo repository.TicketRepository
	eventRepo  repository.EventRepository
	cache      AvailabilityCache
	log        *logrus.Logger
}

// NewTicketService создает новый экземпляр TicketService
func NewTicketService(
	ticketRepo repository.TicketRepository,
	eventRepo repository.EventRepository,
	cache AvailabilityCache,
	log *logrus.Logger,
) TicketService {
	return &ticketService{
		ticketRepo: ticketRepo,
		eventRepo:  eventRepo,
		cache:      cache,
		log:        log,
	}
}

func (s *ticketService) CreateTicket(ctx context.Context, req *CreateTicketRequest) (*entity.Ticket, error) {
	if _, err := s.eventRepo.GetByID(ctx, req.EventID); err != nil {
		return nil, fmt.Errorf("мероприятие не найдено: %w", err)
	}

	if req.EarlyBirdPrice != nil {
		if req.EarlyBirdDeadline == nil {
			return nil, fmt.Errorf("для early bird цены требуется дедлайн")
		}
		if *req.EarlyBirdPrice >= req.Price {
			return nil, fmt.Errorf("early bird цена должна быть ниже основной")
		}
	}

	maxPerOrder := req.MaxPerOrder
	if maxPerOrder <= 0 {
		maxPerOrder = 10
	}

	ticket := &entity.Ticket{
		EventID:        req.EventID,
		Name:           req.Name,
		Type:           req.Type,
		Description:    req.Description,
		Price:          req.Price,
		EarlyBirdPrice: req.EarlyBirdPrice,
		Quantity:       req.Quantity,
		MaxPerOrder:    maxPerOrder,
		IsActive:       true,
	}
	if req.EarlyBirdDeadline != nil {
		deadline := req.EarlyBirdDeadline.Time
		ticket.EarlyBirdDeadline = &deadline
	}

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("не удалось создать билет: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"event_id":  ticket.EventID,
		"quantity":  ticket.Quantity,
	}).Info("тип билета создан")

	return ticket, nil
}

func (s *ticketService) GetTicket(ctx context.Context, id int64) (*entity.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("билет не найден: %w", err)
	}
	return ticket, nil
}

func (s *ticketService) GetEventTickets(ctx context.Context, eventID int64) ([]*entity.Ticket, error) {
	return s.ticketRepo.GetByEventID(ctx, eventID)
}

func (s *ticketService) UpdateTicket(ctx context.Context, id int64, req *UpdateTicketRequest) (*entity.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("билет не найден: %w", err)
	}

	if req.Name != nil {
		ticket.Name = *req.Name
	}
	if req.Description != nil {
		ticket.Description = *req.Description
	}
	if req.Price != nil {
		ticket.Price = *req.Price
	}
	if req.EarlyBirdPrice != nil {
		ticket.EarlyBirdPrice = req.EarlyBirdPrice
	}
	if req.EarlyBirdDeadline != nil {
		deadline := req.EarlyBirdDeadline.Time
		ticket.EarlyBirdDeadline = &deadline
	}
	if req.Quantity != nil {
		if *req.Quantity < ticket.Sold {
			return nil, fmt.Errorf("количество %d меньше уже проданных %d", *req.Quantity, ticket.Sold)
		}
		ticket.Quantity = *req.Quantity
	}
	if req.MaxPerOrder != nil {
		ticket.MaxPerOrder = *req.MaxPerOrder
	}
	if req.IsActive != nil {
		ticket.IsActive = *req.IsActive
	}

	if ticket.EarlyBirdPrice != nil && *ticket.EarlyBirdPrice >= ticket.Price {
		return nil, fmt.Errorf("early bird цена должна быть ниже основной")
	}

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("не удалось обновить билет: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.WithError(err).Warn("не удалось сбросить кэш доступности")
		}
	}

	return ticket, nil
}

func (s *ticketService) DeleteTicket(ctx context.Context, id int64) error {
	if err := s.ticketRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("не удалось удалить билет: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.WithError(err).Warn("не удалось сбросить кэш доступности")
		}
	}

	return nil
}

// GetAvailability возвращает снимок доступности, сперва пробуя кэш.
// Промах кэша читает Postgres и кладет снимок с коротким TTL.
func (s *ticketService) GetAvailability(ctx context.Context, ticketID int64) (*entity.TicketAvailability, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, ticketID)
		if err != nil {
			s.log.WithError(err).Warn("ошибка чтения кэша доступности")
		}
		if cached != nil {
			return cached, nil
		}
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("билет не найден: %w", err)
	}

	waitlisted, err := s.ticketRepo.CountWaitlisted(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать лист ожидания: %w", err)
	}

	availability := &entity.TicketAvailability{
		TicketID:       ticket.ID,
		Quantity:       ticket.Quantity,
		Sold:           ticket.Sold,
		Available:      ticket.Available(),
		WaitlistLength: waitlisted,
		CurrentPrice:   ticket.CurrentPrice(time.Now()),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, availability); err != nil {
			s.log.WithError(err).Warn("не удалось закэшировать доступность")
		}
	}

	return availability, nil
}
