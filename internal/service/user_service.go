package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// RegisterPatient регистрирует пациента из Telegram или обновляет его имя
func (s *UserService) RegisterPatient(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	// Проверяем существует ли пользователь
	existing, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("%w: check existing user: %w", ErrPersistence, err)
	}

	if existing != nil {
		if existing.Name == name || name == "" {
			return existing, nil
		}
		existing.Name = name
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("%w: update user: %w", ErrPersistence, err)
		}

		s.logger.Info("User updated",
			zap.Int64("telegram_id", telegramID),
			zap.String("name", name),
		)
		return existing, nil
	}

	user := &model.User{
		ID:         uuid.New(),
		TelegramID: &telegramID,
		Name:       name,
		Role:       model.RolePatient,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: create user: %w", ErrPersistence, err)
	}

	s.logger.Info("New patient registered",
		zap.String("user_id", user.ID.String()),
		zap.Int64("telegram_id", telegramID),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}
