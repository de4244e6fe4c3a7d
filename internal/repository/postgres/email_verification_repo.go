package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

type EmailVerificationRepo struct {
	db *gorm.DB
}

func NewEmailVerificationRepo(db *gorm.DB) *EmailVerificationRepo {
	return &EmailVerificationRepo{db: db}
}

func (r *EmailVerificationRepo) Create(record *entity.EmailVerificationCode) error {
	return r.db.Create(record).Error
}

func (r *EmailVerificationRepo) GetLatestActiveByUserID(userID uint) (*entity.EmailVerificationCode, error) {
	var record entity.EmailVerificationCode
	err := r.db.
		Where("user_id = ? AND consumed_at IS NULL", userID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest active verification code: %w", err)
	}
	return &record, nil
}

func (r *EmailVerificationRepo) IncrementAttempts(recordID uint) error {
	return r.db.Model(&entity.EmailVerificationCode{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

func (r *EmailVerificationRepo) MarkConsumed(recordID uint) error {
	now := time.Now()
	return r.db.Model(&entity.EmailVerificationCode{}).
		Where("id = ?", recordID).
		Update("consumed_at", now).Error
}
