package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	repository "github.com/ds124wfegd/confhub/internal/database/postgres"
	"github.com/ds124wfegd/confhub/internal/entity"
)

// RegisterUserRequest представляет данные для создания пользователя
type RegisterUserRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name" binding:"required"`
	Organization string `json:"organization"`
}

type userService struct {
	userRepo repository.UserRepository
	log      *logrus.Logger
}

// NewUserService создает новый экземпляр UserService
func NewUserService(userRepo repository.UserRepository, log *logrus.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *userService) RegisterUser(ctx context.Context, req *RegisterUserRequest) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("неверный формат email: %w", entity.ErrInvalidEmail)
	}

	user := &entity.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Organization: strings.TrimSpace(req.Organization),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == entity.ErrUserAlreadyExists {
			return nil, fmt.Errorf("пользователь с таким email уже существует: %w", err)
		}
		return nil, fmt.Errorf("не удалось создать пользователя: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("пользователь зарегистрирован")

	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("пользователь не найден: %w", err)
	}
	return user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("пользователь не найден: %w", err)
	}
	return user, nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]*entity.User, error) {
	return s.userRepo.GetAll(ctx)
}

func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("не удалось удалить пользователя: %w", err)
	}
	return nil
}
