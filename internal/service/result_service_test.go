package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// --- Моки для ResultService ---

type MockQuizRepoForResultService struct {
	mock.Mock
}

func (m *MockQuizRepoForResultService) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepoForResultService) GetByID(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForResultService) GetByRoomCode(code string) (*entity.Quiz, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForResultService) GetWithQuestions(code string) (*entity.Quiz, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForResultService) UpdateStatus(tx *gorm.DB, quizID uint, status string) error {
	args := m.Called(tx, quizID, status)
	return args.Error(0)
}

func (m *MockQuizRepoForResultService) MarkInactive(quizID uint) error {
	args := m.Called(quizID)
	return args.Error(0)
}

func (m *MockQuizRepoForResultService) ListByCreator(creatorID uint, limit, offset int) ([]entity.Quiz, error) {
	args := m.Called(creatorID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForResultService) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockQuestionRepoForResultService struct {
	mock.Mock
}

func (m *MockQuestionRepoForResultService) ReplaceForQuiz(tx *gorm.DB, quizID uint, questions []entity.Question) error {
	args := m.Called(tx, quizID, questions)
	return args.Error(0)
}

func (m *MockQuestionRepoForResultService) GetByQuizID(quizID uint) ([]entity.Question, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepoForResultService) CountByQuizID(quizID uint) (int64, error) {
	args := m.Called(quizID)
	return args.Get(0).(int64), args.Error(1)
}

type MockParticipantRepoForResultService struct {
	mock.Mock
}

func (m *MockParticipantRepoForResultService) GetOrCreate(participant *entity.Participant) (*entity.Participant, bool, error) {
	args := m.Called(participant)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entity.Participant), args.Bool(1), args.Error(2)
}

func (m *MockParticipantRepoForResultService) GetByQuizAndUser(quizID, userID uint) (*entity.Participant, error) {
	args := m.Called(quizID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Participant), args.Error(1)
}

func (m *MockParticipantRepoForResultService) ListByQuiz(quizID uint) ([]entity.Participant, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Participant), args.Error(1)
}

func (m *MockParticipantRepoForResultService) Update(participant *entity.Participant) error {
	args := m.Called(participant)
	return args.Error(0)
}

func (m *MockParticipantRepoForResultService) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockParticipantRepoForResultService) DeleteAllForQuiz(tx *gorm.DB, quizID uint) error {
	args := m.Called(tx, quizID)
	return args.Error(0)
}

type MockResultRepoForResultService struct {
	mock.Mock
}

func (m *MockResultRepoForResultService) Upsert(result *entity.QuizResult) error {
	args := m.Called(result)
	return args.Error(0)
}

func (m *MockResultRepoForResultService) GetAllForQuiz(quizID uint) ([]entity.QuizResult, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizResult), args.Error(1)
}

func (m *MockResultRepoForResultService) UpdateRank(tx *gorm.DB, resultID uint, rank int) error {
	args := m.Called(tx, resultID, rank)
	return args.Error(0)
}

func createTestResultService(t *testing.T) (*ResultService, *MockQuizRepoForResultService, *MockQuestionRepoForResultService, *MockParticipantRepoForResultService, *MockResultRepoForResultService, *TimingService) {
	t.Helper()
	quizRepo := new(MockQuizRepoForResultService)
	questionRepo := new(MockQuestionRepoForResultService)
	participantRepo := new(MockParticipantRepoForResultService)
	resultRepo := new(MockResultRepoForResultService)
	timing, _ := newTestTimingService(t)
	svc := NewResultService(nil, quizRepo, questionRepo, participantRepo, resultRepo, timing)
	return svc, quizRepo, questionRepo, participantRepo, resultRepo, timing
}

func msPtr(ms int64) *int64 {
	return &ms
}

// --- Турнирное ранжирование ---

func TestAssignRanks_CompetitionTies(t *testing.T) {
	// Очки 10,10,8,8,8,5 должны дать ранги 1,1,3,3,3,6
	results := []entity.QuizResult{
		{ID: 1, Score: 10, TimeTakenMs: msPtr(1000)},
		{ID: 2, Score: 10, TimeTakenMs: msPtr(1000)},
		{ID: 3, Score: 8, TimeTakenMs: msPtr(2000)},
		{ID: 4, Score: 8, TimeTakenMs: msPtr(2000)},
		{ID: 5, Score: 8, TimeTakenMs: msPtr(2000)},
		{ID: 6, Score: 5, TimeTakenMs: msPtr(500)},
	}

	assignRanks(results)

	ranks := make([]int, len(results))
	for i, r := range results {
		ranks[i] = r.Rank
	}
	assert.Equal(t, []int{1, 1, 3, 3, 3, 6}, ranks,
		"Равные делят ранг, следующий ранг равен позиции")
}

func TestAssignRanks_TimeBreaksScoreTies(t *testing.T) {
	results := []entity.QuizResult{
		{ID: 1, Score: 10, TimeTakenMs: msPtr(5000)},
		{ID: 2, Score: 10, TimeTakenMs: msPtr(3000)},
	}

	assignRanks(results)

	assert.Equal(t, uint(2), results[0].ID, "Быстрейший при равных очках выше")
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestAssignRanks_NilTimeSortsLast(t *testing.T) {
	results := []entity.QuizResult{
		{ID: 1, Score: 10, TimeTakenMs: nil},
		{ID: 2, Score: 10, TimeTakenMs: msPtr(60000)},
	}

	assignRanks(results)

	assert.Equal(t, uint(2), results[0].ID,
		"Отсутствующее время считается наихудшим при равных очках")
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestAssignRanks_IdempotentWhenRanksCorrect(t *testing.T) {
	// Ранги уже верны: пересчет не должен возвращать изменений
	results := []entity.QuizResult{
		{ID: 1, Score: 10, TimeTakenMs: msPtr(1000), Rank: 1},
		{ID: 2, Score: 8, TimeTakenMs: msPtr(2000), Rank: 2},
	}

	changed := assignRanks(results)

	assert.Empty(t, changed, "Идемпотентный пересчет не пишет в базу")
}

func TestAssignRanks_ReturnsOnlyChanged(t *testing.T) {
	results := []entity.QuizResult{
		{ID: 1, Score: 10, TimeTakenMs: msPtr(1000), Rank: 1},
		{ID: 2, Score: 8, TimeTakenMs: msPtr(2000), Rank: 0}, // новая запись без ранга
	}

	changed := assignRanks(results)

	assert.Equal(t, map[uint]int{2: 2}, changed)
}

// --- Прием ответов ---

func TestResultService_Submit_ScoresExactMatches(t *testing.T) {
	// Arrange
	svc, quizRepo, questionRepo, participantRepo, resultRepo, timing := createTestResultService(t)
	quiz := &entity.Quiz{ID: 10, RoomCode: "123456", Duration: 10, Status: entity.QuizStatusActive, IsActive: true}
	participant := &entity.Participant{ID: 5, QuizID: 10, UserID: 2}
	questions := []entity.Question{
		{ID: 1, QuizID: 10, CorrectOption: "A"},
		{ID: 2, QuizID: 10, CorrectOption: "B"},
		{ID: 3, QuizID: 10, CorrectOption: "C"},
	}

	quizRepo.On("GetByRoomCode", "123456").Return(quiz, nil)
	participantRepo.On("GetByQuizAndUser", uint(10), uint(2)).Return(participant, nil)
	questionRepo.On("GetByQuizID", uint(10)).Return(questions, nil)

	var stored *entity.QuizResult
	resultRepo.On("Upsert", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(0).(*entity.QuizResult)
	}).Return(nil)
	participantRepo.On("Update", participant).Return(nil)

	_, _, err := timing.MarkStarted("123456", time.Now().Add(-2*time.Minute), 10*time.Minute)
	require.NoError(t, err)

	// Act: один верный, один неверный, один вопрос без ответа
	result, err := svc.Submit("123456", 2, map[uint]string{1: "A", 2: "D"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score, "Очко только за точное совпадение метки")
	assert.Equal(t, 0, result.Rank, "Ранг назначает только пересчет, не отправка")
	require.NotNil(t, stored)
	require.NotNil(t, stored.TimeTakenMs)
	assert.InDelta(t, float64(2*time.Minute.Milliseconds()), float64(*stored.TimeTakenMs), 2000,
		"Затраченное время отсчитывается от записанного старта")
	assert.True(t, participant.HasStarted)
	assert.Equal(t, 1, participant.Score)
}

func TestResultService_Submit_LateSubmissionClamped(t *testing.T) {
	// Arrange: окно закончилось 10 минут назад
	svc, quizRepo, questionRepo, participantRepo, resultRepo, timing := createTestResultService(t)
	quiz := &entity.Quiz{ID: 10, RoomCode: "123456", Duration: 5, Status: entity.QuizStatusActive, IsActive: true}

	quizRepo.On("GetByRoomCode", "123456").Return(quiz, nil)
	participantRepo.On("GetByQuizAndUser", uint(10), uint(2)).
		Return(&entity.Participant{ID: 5, QuizID: 10, UserID: 2}, nil)
	questionRepo.On("GetByQuizID", uint(10)).Return([]entity.Question{}, nil)

	var stored *entity.QuizResult
	resultRepo.On("Upsert", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(0).(*entity.QuizResult)
	}).Return(nil)
	participantRepo.On("Update", mock.Anything).Return(nil)

	_, _, err := timing.MarkStarted("123456", time.Now().Add(-15*time.Minute), 5*time.Minute)
	require.NoError(t, err)

	// Act
	_, err = svc.Submit("123456", 2, nil)

	// Assert: время ограничено длительностью окна, не реальным опозданием
	require.NoError(t, err)
	require.NotNil(t, stored.TimeTakenMs)
	assert.Equal(t, (5 * time.Minute).Milliseconds(), *stored.TimeTakenMs,
		"Опоздавшая отправка засчитывается как полная длительность окна")
}

func TestResultService_Submit_NoTimingState(t *testing.T) {
	// Arrange: ключи тайминга истекли, записи старта нет
	svc, quizRepo, questionRepo, participantRepo, resultRepo, _ := createTestResultService(t)
	quiz := &entity.Quiz{ID: 10, RoomCode: "123456", Status: entity.QuizStatusActive, IsActive: true}

	quizRepo.On("GetByRoomCode", "123456").Return(quiz, nil)
	participantRepo.On("GetByQuizAndUser", uint(10), uint(2)).
		Return(&entity.Participant{ID: 5, QuizID: 10, UserID: 2}, nil)
	questionRepo.On("GetByQuizID", uint(10)).Return([]entity.Question{}, nil)

	var stored *entity.QuizResult
	resultRepo.On("Upsert", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(0).(*entity.QuizResult)
	}).Return(nil)
	participantRepo.On("Update", mock.Anything).Return(nil)

	// Act
	_, err := svc.Submit("123456", 2, nil)

	// Assert: отсутствие старта дает NULL-время, не ошибку
	require.NoError(t, err)
	assert.Nil(t, stored.TimeTakenMs)
}

func TestResultService_Submit_NotJoined(t *testing.T) {
	// Arrange
	svc, quizRepo, _, participantRepo, _, _ := createTestResultService(t)
	quiz := &entity.Quiz{ID: 10, RoomCode: "123456", Status: entity.QuizStatusActive, IsActive: true}

	quizRepo.On("GetByRoomCode", "123456").Return(quiz, nil)
	participantRepo.On("GetByQuizAndUser", uint(10), uint(99)).Return(nil, apperrors.ErrNotFound)

	// Act
	_, err := svc.Submit("123456", 99, map[uint]string{1: "A"})

	// Assert
	assert.ErrorIs(t, err, ErrNotJoined)
}

// ComputeRankings сохраняет измененные ранги внутри db.Transaction и
// требует интеграционных тестов с реальной базой данных. Закон
// ранжирования покрыт тестами assignRanks выше.

func TestResultService_ComputeRankings_EmptyRoom(t *testing.T) {
	// Arrange
	svc, _, _, _, resultRepo, _ := createTestResultService(t)
	resultRepo.On("GetAllForQuiz", uint(10)).Return([]entity.QuizResult{}, nil)

	// Act
	results, err := svc.ComputeRankings(10)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, results)
	resultRepo.AssertNotCalled(t, "UpdateRank", mock.Anything, mock.Anything, mock.Anything)
}

func TestResultService_ComputeRankings_NoChangesNoWrites(t *testing.T) {
	// Arrange: все ранги уже верны, транзакция не нужна (db здесь nil)
	svc, _, _, _, resultRepo, _ := createTestResultService(t)
	resultRepo.On("GetAllForQuiz", uint(10)).Return([]entity.QuizResult{
		{ID: 1, Score: 10, TimeTakenMs: msPtr(1000), Rank: 1},
		{ID: 2, Score: 8, TimeTakenMs: msPtr(2000), Rank: 2},
	}, nil)

	// Act
	results, err := svc.ComputeRankings(10)

	// Assert
	require.NoError(t, err)
	assert.Len(t, results, 2)
	resultRepo.AssertNotCalled(t, "UpdateRank", mock.Anything, mock.Anything, mock.Anything)
}
