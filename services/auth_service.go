package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegisterInput struct {
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	PreferredName *string         `json:"preferred_name,omitempty"`
	Email         string          `json:"email"`
	Phone         *string         `json:"phone,omitempty"`
	Password      string          `json:"password"`
	Role          models.UserRole `json:"role,omitempty"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)

	// ChangeEmail — чувствительная операция: требует свежего
	// подтверждения пароля. Пустой или неверный пароль возвращает
	// ErrReauthRequired, и вызывающая сторона повторяет запрос после
	// шага подтверждения.
	ChangeEmail(ctx context.Context, userID int, newEmail, currentPassword string) error
	ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if input.Email == "" || input.FirstName == "" {
		return nil, ErrValidationFailed
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	role := input.Role
	switch role {
	case models.RoleManager, models.RolePlayer:
	case "":
		role = models.RolePlayer
	default:
		// developer назначается вручную, через регистрацию не выдаётся
		return nil, ErrValidationFailed
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		PreferredName: input.PreferredName,
		Email:         input.Email,
		Phone:         input.Phone,
		Role:          role,
		Notification:  models.NotifyAll,
		PasswordHash:  string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrAuthEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) ChangeEmail(ctx context.Context, userID int, newEmail, currentPassword string) error {
	if newEmail == "" {
		return ErrValidationFailed
	}

	if err := s.reauthenticate(ctx, userID, currentPassword); err != nil {
		return err
	}

	err := s.userRepo.UpdateEmail(ctx, userID, newEmail)
	if err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return ErrAuthEmailTaken
		}
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update email: %w", err)
	}
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	if err := s.reauthenticate(ctx, userID, currentPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// reauthenticate проверяет свежие учётные данные перед чувствительной
// операцией. Любой исход, кроме совпадения пароля, — ErrReauthRequired.
func (s *authService) reauthenticate(ctx context.Context, userID int, password string) error {
	if password == "" {
		return ErrReauthRequired
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrReauthRequired
	}
	return nil
}
