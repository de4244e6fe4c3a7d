package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	"github.com/yourusername/study-assistant-api/internal/service/generation"
)

// --- Моки для QuizService ---

type MockQuizRepoForQuizService struct {
	mock.Mock
}

func (m *MockQuizRepoForQuizService) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepoForQuizService) GetByID(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForQuizService) GetByRoomCode(code string) (*entity.Quiz, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForQuizService) GetWithQuestions(code string) (*entity.Quiz, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForQuizService) UpdateStatus(tx *gorm.DB, quizID uint, status string) error {
	args := m.Called(tx, quizID, status)
	return args.Error(0)
}

func (m *MockQuizRepoForQuizService) MarkInactive(quizID uint) error {
	args := m.Called(quizID)
	return args.Error(0)
}

func (m *MockQuizRepoForQuizService) ListByCreator(creatorID uint, limit, offset int) ([]entity.Quiz, error) {
	args := m.Called(creatorID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepoForQuizService) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockQuestionRepoForQuizService struct {
	mock.Mock
}

func (m *MockQuestionRepoForQuizService) ReplaceForQuiz(tx *gorm.DB, quizID uint, questions []entity.Question) error {
	args := m.Called(tx, quizID, questions)
	return args.Error(0)
}

func (m *MockQuestionRepoForQuizService) GetByQuizID(quizID uint) ([]entity.Question, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepoForQuizService) CountByQuizID(quizID uint) (int64, error) {
	args := m.Called(quizID)
	return args.Get(0).(int64), args.Error(1)
}

// stubGenerator возвращает заготовленный ответ или ошибку
type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.response, g.err
}

// sequenceCodeFn выдает коды из списка по порядку
func sequenceCodeFn(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func createTestQuizService(gen generation.Generator) (*QuizService, *MockQuizRepoForQuizService, *MockQuestionRepoForQuizService) {
	quizRepo := new(MockQuizRepoForQuizService)
	questionRepo := new(MockQuestionRepoForQuizService)
	svc := NewQuizService(nil, quizRepo, questionRepo, gen, 10, 5)
	return svc, quizRepo, questionRepo
}

func TestQuizService_InsertWithFreshCode_RetriesOnCollision(t *testing.T) {
	// Arrange
	svc, quizRepo, _ := createTestQuizService(nil)
	svc.codeFn = sequenceCodeFn("111111", "222222", "333333", "444444", "555555")

	quiz := &entity.Quiz{CreatorID: 1, Title: "Тест"}
	for _, taken := range []string{"111111", "222222", "333333", "444444"} {
		code := taken
		quizRepo.On("Create", mock.MatchedBy(func(q *entity.Quiz) bool {
			return q.RoomCode == code
		})).Return(repository.ErrRoomCodeTaken).Once()
	}
	quizRepo.On("Create", mock.MatchedBy(func(q *entity.Quiz) bool {
		return q.RoomCode == "555555"
	})).Return(nil).Once()

	// Act
	err := svc.insertWithFreshCode(quiz)

	// Assert
	require.NoError(t, err, "Пятая попытка со свободным кодом должна пройти")
	assert.Equal(t, "555555", quiz.RoomCode)
	quizRepo.AssertExpectations(t)
}

func TestQuizService_InsertWithFreshCode_Exhausted(t *testing.T) {
	// Arrange
	svc, quizRepo, _ := createTestQuizService(nil)
	svc.codeFn = sequenceCodeFn("123456")

	quizRepo.On("Create", mock.Anything).Return(repository.ErrRoomCodeTaken).Times(5)

	// Act
	err := svc.insertWithFreshCode(&entity.Quiz{CreatorID: 1})

	// Assert
	assert.ErrorIs(t, err, repository.ErrRoomCodeExhausted,
		"Исчерпание попыток должно давать явную ошибку, а не занятый код")
	quizRepo.AssertExpectations(t)
}

func TestQuizService_InsertWithFreshCode_NonCollisionError(t *testing.T) {
	// Arrange
	svc, quizRepo, _ := createTestQuizService(nil)
	svc.codeFn = sequenceCodeFn("123456")

	dbErr := errors.New("connection lost")
	quizRepo.On("Create", mock.Anything).Return(dbErr).Once()

	// Act
	err := svc.insertWithFreshCode(&entity.Quiz{CreatorID: 1})

	// Assert
	assert.ErrorIs(t, err, dbErr, "Не-коллизионная ошибка не должна вызывать повтор")
	quizRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestQuizService_ConfiguredDefaultsRespected(t *testing.T) {
	// Arrange: дефолтная длительность и лимит попыток приходят из конфигурации
	quizRepo := new(MockQuizRepoForQuizService)
	gen := &stubGenerator{err: errors.New("stop before storage")}
	svc := NewQuizService(nil, quizRepo, new(MockQuestionRepoForQuizService), gen, 25, 2)
	svc.codeFn = sequenceCodeFn("123456")

	var inserted entity.Quiz
	quizRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		q := args.Get(0).(*entity.Quiz)
		q.ID = 1
		inserted = *q
	}).Return(nil).Once()
	quizRepo.On("Delete", uint(1)).Return(nil).Once()

	// Act
	_, _ = svc.CreateRoom(context.Background(), CreateRoomInput{
		CreatorID:  1,
		Title:      "Тест",
		SourceText: "материал",
	})

	// Assert
	assert.Equal(t, 25, inserted.Duration, "Нулевая длительность берется из конфигурации")

	// Лимит попыток тоже конфигурируемый: две коллизии исчерпывают пул
	quizRepo2 := new(MockQuizRepoForQuizService)
	svc2 := NewQuizService(nil, quizRepo2, new(MockQuestionRepoForQuizService), nil, 25, 2)
	svc2.codeFn = sequenceCodeFn("111111")
	quizRepo2.On("Create", mock.Anything).Return(repository.ErrRoomCodeTaken).Times(2)

	err := svc2.insertWithFreshCode(&entity.Quiz{CreatorID: 1})

	assert.ErrorIs(t, err, repository.ErrRoomCodeExhausted)
	quizRepo2.AssertNumberOfCalls(t, "Create", 2)
}

func TestQuizService_CreateRoom_GeneratorFailureRollsBack(t *testing.T) {
	// Arrange
	gen := &stubGenerator{err: errors.New("upstream unavailable")}
	svc, quizRepo, _ := createTestQuizService(gen)
	svc.codeFn = sequenceCodeFn("123456")

	quizRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Quiz).ID = 42
	}).Return(nil).Once()
	quizRepo.On("Delete", uint(42)).Return(nil).Once()

	// Act
	quiz, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		CreatorID:  1,
		Title:      "Тест",
		SourceText: "материал",
	})

	// Assert
	require.Error(t, err)
	assert.Nil(t, quiz)
	quizRepo.AssertCalled(t, "Delete", uint(42))
}

func TestQuizService_CreateRoom_UnparseableOutputRollsBack(t *testing.T) {
	// Arrange
	gen := &stubGenerator{response: "это не JSON"}
	svc, quizRepo, _ := createTestQuizService(gen)
	svc.codeFn = sequenceCodeFn("123456")

	quizRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Quiz).ID = 7
	}).Return(nil).Once()
	quizRepo.On("Delete", uint(7)).Return(nil).Once()

	// Act
	quiz, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		CreatorID:  1,
		Title:      "Тест",
		SourceText: "материал",
	})

	// Assert
	assert.ErrorIs(t, err, ErrNoValidQuestions,
		"Непарсящийся вывод генератора фатален для создания комнаты")
	assert.Nil(t, quiz)
	quizRepo.AssertCalled(t, "Delete", uint(7))
}

func TestQuizService_CreateRoom_DefaultsApplied(t *testing.T) {
	// Arrange
	gen := &stubGenerator{err: errors.New("stop before storage")}
	svc, quizRepo, _ := createTestQuizService(gen)
	svc.codeFn = sequenceCodeFn("123456")

	var inserted entity.Quiz
	quizRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		q := args.Get(0).(*entity.Quiz)
		q.ID = 1
		inserted = *q
	}).Return(nil).Once()
	quizRepo.On("Delete", uint(1)).Return(nil).Once()

	// Act: сложность вне диапазона и нулевая длительность
	_, _ = svc.CreateRoom(context.Background(), CreateRoomInput{
		CreatorID:  1,
		Title:      "Тест",
		Difficulty: 9,
		Duration:   0,
		SourceText: "материал",
	})

	// Assert
	assert.Equal(t, 3, inserted.Difficulty, "Сложность вне 1..5 заменяется на 3")
	assert.Equal(t, 10, inserted.Duration, "Нулевая длительность заменяется на 10 минут")
	assert.Equal(t, entity.QuizStatusActive, inserted.Status)
	assert.True(t, inserted.IsActive)
}

// StoreQuestions с валидными элементами выполняется в db.Transaction и
// требует интеграционных тестов с реальной базой данных. Здесь проверяется
// только фильтрация: ни одного валидного элемента - ноль принятых, база
// не затрагивается.
func TestQuizService_StoreQuestions_AllInvalid(t *testing.T) {
	// Arrange
	svc, _, questionRepo := createTestQuizService(nil)
	items := []generation.GeneratedQuestion{
		{Question: "", Options: []string{"a", "b", "c", "d"}, AnswerIndex: 0},
		{Question: "q", Options: []string{"a", "b"}, AnswerIndex: 0},
		{Question: "q", Options: []string{"a", "b", "c", "d"}, AnswerIndex: 5},
	}

	// Act
	accepted, err := svc.StoreQuestions(&entity.Quiz{ID: 1}, items)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, accepted)
	questionRepo.AssertNotCalled(t, "ReplaceForQuiz", mock.Anything, mock.Anything, mock.Anything)
}
