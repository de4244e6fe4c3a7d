package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	redisrepo "github.com/yourusername/study-assistant-api/internal/repository/redis"
)

func newTestTimingService(t *testing.T) (*TimingService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "Не удалось запустить miniredis")
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache, err := redisrepo.NewCacheRepo(client)
	require.NoError(t, err)
	return NewTimingService(cache), mr
}

func TestTimingService_MarkStarted(t *testing.T) {
	svc, mr := newTestTimingService(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	startAt, endsAt, err := svc.MarkStarted("123456", now, 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, now, startAt)
	assert.Equal(t, now.Add(10*time.Minute), endsAt)
	assert.True(t, mr.Exists("quiz:123456:start_at"), "Ключ старта должен существовать")
	assert.True(t, mr.Exists("quiz:123456:ends_at"), "Ключ дедлайна должен существовать")

	// TTL окна равен 120-кратной длительности в минутах, в секундах
	assert.Equal(t, 1200*time.Second, mr.TTL("quiz:123456:start_at"))
	assert.Equal(t, 1200*time.Second, mr.TTL("quiz:123456:ends_at"))
}

func TestTimingService_MarkStarted_Restart(t *testing.T) {
	svc, _ := newTestTimingService(t)
	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)

	_, _, err := svc.MarkStarted("123456", first, 10*time.Minute)
	require.NoError(t, err)
	_, _, err = svc.MarkStarted("123456", second, 10*time.Minute)
	require.NoError(t, err)

	state, err := svc.ReadState("123456")
	require.NoError(t, err)
	require.NotNil(t, state.StartAt)
	assert.True(t, state.StartAt.Equal(second), "Повторный старт перезаписывает окно")
}

func TestTimingService_ReadState_RoundTrip(t *testing.T) {
	svc, _ := newTestTimingService(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, _, err := svc.MarkStarted("654321", now, 15*time.Minute)
	require.NoError(t, err)

	state, err := svc.ReadState("654321")
	require.NoError(t, err)

	require.NotNil(t, state.StartAt)
	require.NotNil(t, state.EndsAt)
	assert.True(t, state.StartAt.Equal(now), "Метка старта должна пережить round-trip через RFC3339")
	assert.True(t, state.EndsAt.Equal(now.Add(15*time.Minute)))
	assert.False(t, state.Aborted)
	assert.Equal(t, entity.PhaseRunning, state.Phase(now.Add(time.Minute)))
}

func TestTimingService_ReadState_MissingKeys(t *testing.T) {
	svc, _ := newTestTimingService(t)

	state, err := svc.ReadState("000000")
	require.NoError(t, err, "Отсутствующие ключи не являются ошибкой")

	assert.Nil(t, state.StartAt)
	assert.Nil(t, state.EndsAt)
	assert.False(t, state.Aborted)
	assert.Equal(t, entity.PhaseLobby, state.Phase(time.Now()))
}

func TestTimingService_ReadState_CorruptTimestamp(t *testing.T) {
	svc, mr := newTestTimingService(t)

	require.NoError(t, mr.Set("quiz:123456:start_at", "not-a-timestamp"))

	state, err := svc.ReadState("123456")
	require.NoError(t, err, "Испорченная метка трактуется как отсутствующая")
	assert.Nil(t, state.StartAt)
}

func TestTimingService_MarkAborted(t *testing.T) {
	svc, mr := newTestTimingService(t)

	require.NoError(t, svc.MarkAborted("123456"))
	assert.True(t, mr.Exists("quiz:123456:aborted"))

	state, err := svc.ReadState("123456")
	require.NoError(t, err)
	assert.True(t, state.Aborted)
	assert.Equal(t, entity.PhaseAborted, state.Phase(time.Now()),
		"Прерывание терминально независимо от окна")
}
