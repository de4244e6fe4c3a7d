package repository

import (
	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// EmailVerificationRepository определяет методы для работы с OTP-кодами
type EmailVerificationRepository interface {
	Create(record *entity.EmailVerificationCode) error
	GetLatestActiveByUserID(userID uint) (*entity.EmailVerificationCode, error)
	IncrementAttempts(recordID uint) error
	MarkConsumed(recordID uint) error
}
