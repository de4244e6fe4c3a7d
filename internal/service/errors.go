package service

import "errors"

// Ошибки координации комнат. Обработчики переводят их в ответы
// с подсказкой-редиректом, а не в голые коды состояния.
var (
	// ErrRoomInactive — комната закрыта (результаты просмотрены или прервана).
	ErrRoomInactive = errors.New("room is no longer active")
	// ErrAlreadyStarted — викторина уже идет, присоединяться поздно.
	ErrAlreadyStarted = errors.New("quiz has already started")
	// ErrRoomAborted — создатель прервал комнату.
	ErrRoomAborted = errors.New("room was aborted by its creator")
	// ErrNotInRoom — пользователь не является ни создателем, ни участником.
	ErrNotInRoom = errors.New("user is not in this room")
	// ErrNotJoined — отправка ответов без предварительного join.
	ErrNotJoined = errors.New("user has not joined this quiz")
	// ErrNoValidQuestions — генератор не вернул ни одного валидного вопроса.
	ErrNoValidQuestions = errors.New("no valid questions were generated")
)
