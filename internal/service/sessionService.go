package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	repository "github.com/ds124wfegd/confhub/internal/database/postgres"
	"github.com/ds124wfegd/confhub/internal/entity"
)

// CreateSessionRequest представляет данные для создания сессии
type CreateSessionRequest struct {
	EventID     int64             `json:"event_id" binding:"required"`
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	SpeakerID   *int64            `json:"speaker_id"`
	SpeakerName string            `json:"speaker_name"`
	Room        string            `json:"room" binding:"required"`
	StartTime   entity.CustomTime `json:"start_time" binding:"required"`
	EndTime     entity.CustomTime `json:"end_time" binding:"required"`
	Capacity    int               `json:"capacity" binding:"required,min=1"`
}

// UpdateSessionRequest представляет данные для изменения сессии
type UpdateSessionRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	SpeakerID   *int64             `json:"speaker_id"`
	SpeakerName *string            `json:"speaker_name"`
	Room        *string            `json:"room"`
	StartTime   *entity.CustomTime `json:"start_time"`
	EndTime     *entity.CustomTime `json:"end_time"`
	Capacity    *int               `json:"capacity"`
	Status      *string            `json:"status"`
}

// CheckConflictsRequest представляет окно расписания для проверки
type CheckConflictsRequest struct {
	EventID   int64             `json:"event_id" binding:"required"`
	Room      string            `json:"room"`
	SpeakerID *int64            `json:"speaker_id"`
	StartTime entity.CustomTime `json:"start_time" binding:"required"`
	EndTime   entity.CustomTime `json:"end_time" binding:"required"`
	ExcludeID int64             `json:"exclude_id"`
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	eventRepo   repository.EventRepository
	userRepo    repository.UserRepository
	notifier    CapacityNotifier
	log         *logrus.Logger
}

// NewSessionService создает новый экземпляр SessionService
func NewSessionService(
	sessionRepo repository.SessionRepository,
	eventRepo repository.EventRepository,
	userRepo repository.UserRepository,
	notifier CapacityNotifier,
	log *logrus.Logger,
) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		log:         log,
	}
}

// CreateSession создает сессию, предварительно проверив расписание.
// При конфликтах сессия не создается, возвращается их список.
func (s *sessionService) CreateSession(ctx context.Context, req *CreateSessionRequest) (*entity.Session, []entity.Conflict, error) {
	if _, err := s.eventRepo.GetByID(ctx, req.EventID); err != nil {
		return nil, nil, fmt.Errorf("мероприятие не найдено: %w", err)
	}

	start, end := req.StartTime.Time, req.EndTime.Time
	if !start.Before(end) {
		return nil, nil, fmt.Errorf("начало сессии должно быть раньше окончания: %w", entity.ErrSessionTimeOrder)
	}

	conflicts, err := s.findConflicts(ctx, req.EventID, start, end, req.Room, req.SpeakerID, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, fmt.Errorf("расписание пересекается с существующими сессиями: %w", entity.ErrScheduleConflict)
	}

	session := &entity.Session{
		EventID:     req.EventID,
		Title:       req.Title,
		Description: req.Description,
		SpeakerID:   req.SpeakerID,
		SpeakerName: req.SpeakerName,
		Room:        req.Room,
		StartTime:   start,
		EndTime:     end,
		Capacity:    req.Capacity,
		Status:      entity.SessionStatusScheduled,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("не удалось создать сессию: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"event_id":   session.EventID,
		"room":       session.Room,
	}).Info("сессия создана")

	return session, nil, nil
}

func (s *sessionService) GetSession(ctx context.Context, id int64) (*entity.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("сессия не найдена: %w", err)
	}
	return session, nil
}

func (s *sessionService) GetEventSessions(ctx context.Context, eventID int64) ([]*entity.Session, error) {
	return s.sessionRepo.GetByEventID(ctx, eventID)
}

// UpdateSession изменяет сессию. Перенос по времени, помещению или спикеру
// проходит ту же проверку конфликтов, исключая саму сессию.
func (s *sessionService) UpdateSession(ctx context.Context, id int64, req *UpdateSessionRequest) (*entity.Session, []entity.Conflict, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("сессия не найдена: %w", err)
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Description != nil {
		session.Description = *req.Description
	}
	if req.SpeakerID != nil {
		session.SpeakerID = req.SpeakerID
	}
	if req.SpeakerName != nil {
		session.SpeakerName = *req.SpeakerName
	}
	if req.Room != nil {
		session.Room = *req.Room
	}
	if req.StartTime != nil {
		session.StartTime = req.StartTime.Time
	}
	if req.EndTime != nil {
		session.EndTime = req.EndTime.Time
	}
	if req.Capacity != nil {
		// Снижать вместимость ниже числа занятых мест нельзя
		if *req.Capacity < session.Registered {
			return nil, nil, fmt.Errorf("вместимость %d меньше числа участников %d", *req.Capacity, session.Registered)
		}
		session.Capacity = *req.Capacity
	}
	if req.Status != nil {
		session.Status = entity.SessionStatus(*req.Status)
	}

	if !session.StartTime.Before(session.EndTime) {
		return nil, nil, fmt.Errorf("начало сессии должно быть раньше окончания: %w", entity.ErrSessionTimeOrder)
	}

	conflicts, err := s.findConflicts(ctx, session.EventID, session.StartTime, session.EndTime, session.Room, session.SpeakerID, session.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, fmt.Errorf("расписание пересекается с существующими сессиями: %w", entity.ErrScheduleConflict)
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("не удалось обновить сессию: %w", err)
	}

	return session, nil, nil
}

func (s *sessionService) DeleteSession(ctx context.Context, id int64) error {
	if err := s.sessionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("не удалось удалить сессию: %w", err)
	}
	return nil
}

// JoinSession добавляет пользователя в сессию или в хвост листа ожидания.
// Возвращает true, если место получено.
func (s *sessionService) JoinSession(ctx context.Context, sessionID, userID int64) (*entity.Session, bool, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, false, fmt.Errorf("пользователь не найден: %w", err)
	}

	seated, session, err := s.sessionRepo.Join(ctx, sessionID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("не удалось присоединиться к сессии: %w", err)
	}

	s.broadcast(session)

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
		"seated":     seated,
	}).Info("пользователь присоединился к сессии")

	return session, seated, nil
}

// LeaveSession убирает пользователя из сессии; освободившееся место
// занимает голова листа ожидания
func (s *sessionService) LeaveSession(ctx context.Context, sessionID, userID int64) (*entity.Session, error) {
	promoted, session, err := s.sessionRepo.Leave(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("не удалось покинуть сессию: %w", err)
	}

	if promoted != 0 {
		s.log.WithFields(logrus.Fields{
			"session_id":  sessionID,
			"promoted_id": promoted,
		}).Info("участник из листа ожидания получил место")
	}

	s.broadcast(session)

	return session, nil
}

// CheckConflicts проверяет окно расписания без изменения данных
func (s *sessionService) CheckConflicts(ctx context.Context, req *CheckConflictsRequest) ([]entity.Conflict, error) {
	start, end := req.StartTime.Time, req.EndTime.Time
	if !start.Before(end) {
		return nil, fmt.Errorf("начало сессии должно быть раньше окончания: %w", entity.ErrSessionTimeOrder)
	}

	return s.findConflicts(ctx, req.EventID, start, end, req.Room, req.SpeakerID, req.ExcludeID)
}

func (s *sessionService) findConflicts(ctx context.Context, eventID int64, start, end time.Time, room string, speakerID *int64, excludeID int64) ([]entity.Conflict, error) {
	roomSessions, speakerSessions, err := s.sessionRepo.FindConflicts(ctx, eventID, start, end, room, speakerID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("не удалось проверить расписание: %w", err)
	}

	var conflicts []entity.Conflict
	for _, existing := range roomSessions {
		conflicts = append(conflicts, entity.VenueConflict(room, existing))
	}
	for _, existing := range speakerSessions {
		conflicts = append(conflicts, entity.SpeakerConflict(existing))
	}
	return conflicts, nil
}

func (s *sessionService) broadcast(session *entity.Session) {
	if s.notifier == nil || session == nil {
		return
	}

	available := session.Capacity - session.Registered
	if available < 0 {
		available = 0
	}

	s.notifier.Broadcast(&entity.CapacityUpdate{
		ResourceType:   entity.ResourceTypeSession,
		ResourceID:     session.ID,
		EventID:        session.EventID,
		Available:      available,
		WaitlistLength: len(session.Waitlist),
		EmittedAt:      time.Now(),
	})
}
