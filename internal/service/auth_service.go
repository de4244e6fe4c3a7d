package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
	"github.com/yourusername/study-assistant-api/pkg/auth"
)

// AuthService отвечает за регистрацию и вход пользователей
type AuthService struct {
	userRepo            repository.UserRepository
	jwtService          *auth.JWTService
	verificationService *EmailVerificationService
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	verificationService *EmailVerificationService,
) *AuthService {
	return &AuthService{
		userRepo:            userRepo,
		jwtService:          jwtService,
		verificationService: verificationService,
	}
}

// Register создает нового пользователя и отправляет код подтверждения email.
// Пароль хешируется bcrypt-хуком на сущности User.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	user := &entity.User{
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already in use", apperrors.ErrConflict)
		}
		return nil, err
	}

	// Ошибка отправки кода не откатывает регистрацию: код можно перезапросить
	if err := s.verificationService.SendCode(ctx, user.ID); err != nil {
		log.Printf("[AuthService] Не удалось отправить код подтверждения пользователю ID=%d: %v", user.ID, err)
	}

	log.Printf("[AuthService] Зарегистрирован пользователь ID=%d (%s)", user.ID, user.Email)
	return user, nil
}

// Login проверяет учетные данные и выдает JWT
func (s *AuthService) Login(email, password string) (string, *entity.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !user.CheckPassword(password) {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsEmailVerified() {
		return "", nil, ErrEmailNotVerified
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, user, nil
}

// GetUser возвращает пользователя по ID
func (s *AuthService) GetUser(userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}

// GetUserByEmail возвращает пользователя по email
func (s *AuthService) GetUserByEmail(email string) (*entity.User, error) {
	return s.userRepo.GetByEmail(email)
}
