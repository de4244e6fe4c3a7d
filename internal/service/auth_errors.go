package service

import "errors"

// Ошибки регистрации и подтверждения email
var (
	ErrInvalidCredentials           = errors.New("invalid email or password")
	ErrEmailNotVerified             = errors.New("email is not verified")
	ErrInvalidVerificationCode      = errors.New("invalid verification code")
	ErrVerificationExpired          = errors.New("verification code expired")
	ErrVerificationAttemptsExceeded = errors.New("verification attempts exceeded")
	ErrVerificationResendCooldown   = errors.New("verification code was sent recently")
)
