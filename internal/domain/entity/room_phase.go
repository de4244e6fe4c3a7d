package entity

import "time"

// RoomPhase — фаза жизненного цикла комнаты
type RoomPhase string

const (
	PhaseLobby   RoomPhase = "lobby"   // старт не записан
	PhaseRunning RoomPhase = "running" // старт записан, дедлайн не прошел
	PhaseEnded   RoomPhase = "ended"   // дедлайн прошел
	PhaseAborted RoomPhase = "aborted" // прервана создателем, терминальная
)

// TimingState — снимок эфемерного состояния комнаты из expiring-хранилища.
// Отсутствие start/end трактуется как "не началась", никогда как ошибка.
type TimingState struct {
	StartAt *time.Time
	EndsAt  *time.Time
	Aborted bool
}

// Started сообщает, был ли записан старт
func (s TimingState) Started() bool {
	return s.StartAt != nil
}

// Phase вычисляет фазу комнаты как чистую функцию от (now, start, end, aborted).
// Переход Running → Ended происходит лениво, при чтении: никаких таймеров.
func (s TimingState) Phase(now time.Time) RoomPhase {
	if s.Aborted {
		return PhaseAborted
	}
	if s.StartAt == nil || s.EndsAt == nil {
		return PhaseLobby
	}
	if !now.Before(*s.EndsAt) {
		return PhaseEnded
	}
	return PhaseRunning
}

// Remaining возвращает оставшееся время викторины (0, если не идет)
func (s TimingState) Remaining(now time.Time) time.Duration {
	if s.Phase(now) != PhaseRunning {
		return 0
	}
	return s.EndsAt.Sub(now)
}

// ClampElapsed возвращает прошедшее с начала время, ограниченное дедлайном:
// опоздавшая отправка засчитывается как ends_at - start_at, никогда больше.
func (s TimingState) ClampElapsed(now time.Time) time.Duration {
	if s.StartAt == nil {
		return 0
	}
	end := now
	if s.EndsAt != nil && now.After(*s.EndsAt) {
		end = *s.EndsAt
	}
	if end.Before(*s.StartAt) {
		return 0
	}
	return end.Sub(*s.StartAt)
}
