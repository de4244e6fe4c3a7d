package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// abortedFlagTTL — время жизни флага прерывания. Флаг живет дольше окна
// викторины, чтобы опоздавшие опросы лобби увидели прерывание.
const abortedFlagTTL = 6 * time.Hour

// TimingService управляет эфемерным состоянием тайминга комнат.
// Старт и дедлайн хранятся в expiring-хранилище отдельно от долговечных
// данных: истечение ключей само по себе не ошибка, а "не началась".
type TimingService struct {
	cache repository.CacheRepository
}

// NewTimingService создает новый сервис тайминга
func NewTimingService(cache repository.CacheRepository) *TimingService {
	return &TimingService{cache: cache}
}

func startKey(code string) string {
	return fmt.Sprintf("quiz:%s:start_at", code)
}

func endsKey(code string) string {
	return fmt.Sprintf("quiz:%s:ends_at", code)
}

func abortedKey(code string) string {
	return fmt.Sprintf("quiz:%s:aborted", code)
}

// MarkStarted записывает окно викторины. Повторный вызов перезаписывает
// окно целиком (рестарт разрешен и сбрасывает таймер для всех).
// TTL ключей равен 120-кратной длительности в минутах, в секундах.
func (s *TimingService) MarkStarted(code string, now time.Time, duration time.Duration) (time.Time, time.Time, error) {
	startAt := now
	endsAt := now.Add(duration)
	ttl := time.Duration(duration.Minutes()*120) * time.Second

	if err := s.cache.Set(startKey(code), startAt.Format(time.RFC3339), ttl); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to store start time: %w", err)
	}
	if err := s.cache.Set(endsKey(code), endsAt.Format(time.RFC3339), ttl); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to store end time: %w", err)
	}

	log.Printf("[TimingService] Комната %s: окно викторины %s - %s (TTL %v)",
		code, startAt.Format(time.RFC3339), endsAt.Format(time.RFC3339), ttl)
	return startAt, endsAt, nil
}

// MarkAborted выставляет флаг прерывания. Флаг независим от ключей окна:
// его TTL фиксированный, а не привязан к длительности викторины.
func (s *TimingService) MarkAborted(code string) error {
	if err := s.cache.Set(abortedKey(code), "1", abortedFlagTTL); err != nil {
		return fmt.Errorf("failed to store aborted flag: %w", err)
	}
	log.Printf("[TimingService] Комната %s помечена как прерванная", code)
	return nil
}

// ReadState возвращает снимок эфемерного состояния комнаты.
// Отсутствующие ключи дают нулевые значения, не ошибки.
func (s *TimingService) ReadState(code string) (entity.TimingState, error) {
	var state entity.TimingState

	startAt, err := s.readTime(startKey(code))
	if err != nil {
		return state, err
	}
	endsAt, err := s.readTime(endsKey(code))
	if err != nil {
		return state, err
	}

	aborted, err := s.cache.Exists(abortedKey(code))
	if err != nil {
		return state, fmt.Errorf("failed to read aborted flag: %w", err)
	}

	state.StartAt = startAt
	state.EndsAt = endsAt
	state.Aborted = aborted
	return state, nil
}

// readTime читает RFC3339-метку по ключу; отсутствие ключа дает nil
func (s *TimingService) readTime(key string) (*time.Time, error) {
	raw, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read timing key %s: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Испорченное значение эквивалентно отсутствующему
		log.Printf("[TimingService] Некорректная метка времени в ключе %s: %v", key, err)
		return nil, nil
	}
	return &t, nil
}
