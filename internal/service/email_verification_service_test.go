package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// Моки репозиториев переиспользуются из auth_service_test.go,
// сервисы живут в одном пакете.

func createTestVerificationService(t *testing.T) (*EmailVerificationService, *MockUserRepoForAuthService, *MockVerificationRepoForAuthService, *recordingEmailService) {
	t.Helper()
	userRepo := new(MockUserRepoForAuthService)
	verificationRepo := new(MockVerificationRepoForAuthService)
	emailService := &recordingEmailService{}

	svc, err := NewEmailVerificationService(
		userRepo, verificationRepo, emailService,
		15*time.Minute, time.Minute, 5, "pepper")
	require.NoError(t, err)
	return svc, userRepo, verificationRepo, emailService
}

func activeVerificationRecord(code string) *entity.EmailVerificationCode {
	salt := "00112233445566778899aabbccddeeff"
	return &entity.EmailVerificationCode{
		ID:           10,
		UserID:       1,
		Email:        "test@example.com",
		CodeHash:     hashVerificationCode(code, salt, "pepper"),
		CodeSalt:     salt,
		ExpiresAt:    time.Now().Add(15 * time.Minute),
		AttemptCount: 0,
		MaxAttempts:  5,
		LastSentAt:   time.Now().Add(-2 * time.Minute),
	}
}

func TestEmailVerificationService_SendCode_Cooldown(t *testing.T) {
	// Arrange: предыдущий код отправлен только что
	svc, userRepo, verificationRepo, emailService := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1, Email: "test@example.com"}, nil)

	recent := activeVerificationRecord("123456")
	recent.LastSentAt = time.Now().Add(-10 * time.Second)
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(recent, nil)

	// Act
	err := svc.SendCode(context.Background(), 1)

	// Assert
	assert.ErrorIs(t, err, ErrVerificationResendCooldown)
	assert.Empty(t, emailService.sentTo, "Повторная отправка раньше cooldown не выполняется")
}

func TestEmailVerificationService_SendCode_AlreadyVerified(t *testing.T) {
	// Arrange
	svc, userRepo, _, emailService := createTestVerificationService(t)
	now := time.Now()
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1, EmailVerifiedAt: &now}, nil)

	// Act
	err := svc.SendCode(context.Background(), 1)

	// Assert: идемпотентный no-op
	require.NoError(t, err)
	assert.Empty(t, emailService.sentTo)
}

func TestEmailVerificationService_SendCode_StoresHashNotCode(t *testing.T) {
	// Arrange
	svc, userRepo, verificationRepo, emailService := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1, Email: "test@example.com"}, nil)
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(nil, apperrors.ErrNotFound)

	var stored *entity.EmailVerificationCode
	verificationRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(0).(*entity.EmailVerificationCode)
		stored.ID = 10
	}).Return(nil)

	// Act
	err := svc.SendCode(context.Background(), 1)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, emailService.sentCodes, 1)
	sentCode := emailService.sentCodes[0]
	assert.NotContains(t, stored.CodeHash, sentCode, "В БД хранится хеш, а не сам код")
	assert.Equal(t, hashVerificationCode(sentCode, stored.CodeSalt, "pepper"), stored.CodeHash)
}

func TestEmailVerificationService_ConfirmCode_Success(t *testing.T) {
	// Arrange
	svc, userRepo, verificationRepo, _ := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1, Email: "test@example.com"}, nil)
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(activeVerificationRecord("123456"), nil)
	verificationRepo.On("MarkConsumed", uint(10)).Return(nil)
	userRepo.On("MarkEmailVerified", uint(1)).Return(nil)

	// Act
	err := svc.ConfirmCode(context.Background(), 1, "123456")

	// Assert
	require.NoError(t, err)
	verificationRepo.AssertCalled(t, "MarkConsumed", uint(10))
	userRepo.AssertCalled(t, "MarkEmailVerified", uint(1))
}

func TestEmailVerificationService_ConfirmCode_WrongCode(t *testing.T) {
	// Arrange
	svc, userRepo, verificationRepo, _ := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1}, nil)
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(activeVerificationRecord("123456"), nil)
	verificationRepo.On("IncrementAttempts", uint(10)).Return(nil)

	// Act
	err := svc.ConfirmCode(context.Background(), 1, "654321")

	// Assert
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	verificationRepo.AssertCalled(t, "IncrementAttempts", uint(10))
	userRepo.AssertNotCalled(t, "MarkEmailVerified", mock.Anything)
}

func TestEmailVerificationService_ConfirmCode_Expired(t *testing.T) {
	// Arrange
	svc, userRepo, verificationRepo, _ := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1}, nil)

	expired := activeVerificationRecord("123456")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(expired, nil)

	// Act
	err := svc.ConfirmCode(context.Background(), 1, "123456")

	// Assert: даже верный код бесполезен после истечения срока
	assert.ErrorIs(t, err, ErrVerificationExpired)
}

func TestEmailVerificationService_ConfirmCode_AttemptsExceeded(t *testing.T) {
	// Arrange
	svc, userRepo, verificationRepo, _ := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1}, nil)

	exhausted := activeVerificationRecord("123456")
	exhausted.AttemptCount = 5
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(exhausted, nil)

	// Act
	err := svc.ConfirmCode(context.Background(), 1, "123456")

	// Assert
	assert.ErrorIs(t, err, ErrVerificationAttemptsExceeded)
}

func TestEmailVerificationService_ConfirmCode_LastAttemptLocksOut(t *testing.T) {
	// Arrange: осталась одна попытка, и она неверная
	svc, userRepo, verificationRepo, _ := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1}, nil)

	record := activeVerificationRecord("123456")
	record.AttemptCount = 4
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(record, nil)
	verificationRepo.On("IncrementAttempts", uint(10)).Return(nil)

	// Act
	err := svc.ConfirmCode(context.Background(), 1, "000000")

	// Assert
	assert.ErrorIs(t, err, ErrVerificationAttemptsExceeded,
		"Последняя неверная попытка сразу сообщает о блокировке")
}

func TestEmailVerificationService_ConfirmCode_NoActiveRecord(t *testing.T) {
	// Arrange
	svc, userRepo, verificationRepo, _ := createTestVerificationService(t)
	userRepo.On("GetByID", uint(1)).Return(&entity.User{ID: 1}, nil)
	verificationRepo.On("GetLatestActiveByUserID", uint(1)).Return(nil, apperrors.ErrNotFound)

	// Act
	err := svc.ConfirmCode(context.Background(), 1, "123456")

	// Assert
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
}

func TestEmailVerificationService_ConfirmCode_EmptyCode(t *testing.T) {
	svc, _, _, _ := createTestVerificationService(t)

	err := svc.ConfirmCode(context.Background(), 1, "   ")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
