package repository

import "errors"

var (
	// ErrRoomCodeTaken означает, что сгенерированный код комнаты уже занят (unique violation).
	ErrRoomCodeTaken = errors.New("room code already taken")
	// ErrRoomCodeExhausted означает, что все попытки подобрать уникальный код исчерпаны.
	ErrRoomCodeExhausted = errors.New("could not generate unique room code")
)
