package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"

	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	"github.com/yourusername/study-assistant-api/internal/service/generation"
)

// QuizService управляет созданием комнат и хранением вопросов
type QuizService struct {
	db           *gorm.DB
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	generator    generation.Generator

	// defaultDuration — длительность комнаты в минутах, если не задана
	defaultDuration int
	// codeAttempts — число попыток подобрать свободный код комнаты.
	// После последней коллизии создание явно проваливается, код не переиспользуется.
	codeAttempts int

	// codeFn генерирует кандидата кода комнаты; подменяется в тестах
	codeFn func() (string, error)
}

// NewQuizService создает новый сервис викторин
func NewQuizService(
	db *gorm.DB,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	generator generation.Generator,
	defaultDurationMin int,
	roomCodeAttempts int,
) *QuizService {
	if defaultDurationMin <= 0 {
		defaultDurationMin = 10
	}
	if roomCodeAttempts <= 0 {
		roomCodeAttempts = 5
	}
	return &QuizService{
		db:              db,
		quizRepo:        quizRepo,
		questionRepo:    questionRepo,
		generator:       generator,
		defaultDuration: defaultDurationMin,
		codeAttempts:    roomCodeAttempts,
		codeFn:          randomRoomCode,
	}
}

// randomRoomCode возвращает случайный 6-значный цифровой код
func randomRoomCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate room code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// CreateRoomInput — параметры создания комнаты
type CreateRoomInput struct {
	CreatorID     uint
	Title         string
	Description   string
	Difficulty    int
	Duration      int // минуты
	TopicFocus    string
	QuestionCount int
	SourceText    string
}

// CreateRoom создает комнату: генерирует вопросы по исходному тексту,
// подбирает уникальный код и сохраняет комнату с вопросами. Любая ошибка
// после вставки комнаты откатывает создание целиком, полузаполненных
// комнат не остается.
func (s *QuizService) CreateRoom(ctx context.Context, input CreateRoomInput) (*entity.Quiz, error) {
	if !entity.ValidDifficulty(input.Difficulty) {
		input.Difficulty = 3
	}
	if input.Duration <= 0 {
		input.Duration = s.defaultDuration
	}

	quiz := &entity.Quiz{
		CreatorID:   input.CreatorID,
		Title:       input.Title,
		Description: input.Description,
		Difficulty:  input.Difficulty,
		Duration:    input.Duration,
		TopicFocus:  input.TopicFocus,
		Status:      entity.QuizStatusActive,
		IsActive:    true,
	}

	if err := s.insertWithFreshCode(quiz); err != nil {
		return nil, err
	}

	count := generation.QuestionCount(input.QuestionCount, input.Duration)
	prompt := generation.BuildQuizPrompt(input.SourceText, count, input.Difficulty, input.TopicFocus)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.rollbackQuiz(quiz.ID)
		return nil, fmt.Errorf("question generation failed: %w", err)
	}

	items, err := generation.ParseQuestions(raw)
	if err != nil {
		s.rollbackQuiz(quiz.ID)
		return nil, fmt.Errorf("%w: %v", ErrNoValidQuestions, err)
	}

	accepted, err := s.StoreQuestions(quiz, items)
	if err != nil {
		s.rollbackQuiz(quiz.ID)
		return nil, err
	}
	if accepted == 0 {
		s.rollbackQuiz(quiz.ID)
		return nil, ErrNoValidQuestions
	}

	log.Printf("[QuizService] Комната %s создана (quiz ID=%d, %d вопросов)", quiz.RoomCode, quiz.ID, accepted)
	return quiz, nil
}

// insertWithFreshCode вставляет комнату, повторяя попытку с новым кодом
// при коллизии уникального индекса room_code
func (s *QuizService) insertWithFreshCode(quiz *entity.Quiz) error {
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		code, err := s.codeFn()
		if err != nil {
			return err
		}
		quiz.RoomCode = code

		err = s.quizRepo.Create(quiz)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrRoomCodeTaken) {
			return err
		}
		log.Printf("[QuizService] Код комнаты %s занят (попытка %d/%d)", code, attempt, s.codeAttempts)
	}
	return repository.ErrRoomCodeExhausted
}

// StoreQuestions заменяет вопросы комнаты принятыми элементами генератора.
// Некорректные элементы отфильтровываются, замена выполняется в одной
// транзакции. Возвращает число принятых вопросов.
func (s *QuizService) StoreQuestions(quiz *entity.Quiz, items []generation.GeneratedQuestion) (int, error) {
	questions := make([]entity.Question, 0, len(items))
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		questions = append(questions, entity.Question{
			QuizID:        quiz.ID,
			Text:          item.Question,
			OptionA:       item.Options[0],
			OptionB:       item.Options[1],
			OptionC:       item.Options[2],
			OptionD:       item.Options[3],
			CorrectOption: entity.OptionLabels[item.AnswerIndex],
		})
	}
	if len(questions) == 0 {
		return 0, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.questionRepo.ReplaceForQuiz(tx, quiz.ID, questions)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store questions: %w", err)
	}
	return len(questions), nil
}

// rollbackQuiz удаляет комнату после сбоя на пути создания
func (s *QuizService) rollbackQuiz(quizID uint) {
	if err := s.quizRepo.Delete(quizID); err != nil {
		log.Printf("[QuizService] Не удалось откатить комнату ID=%d: %v", quizID, err)
	}
}

// GetByRoomCode возвращает комнату по коду
func (s *QuizService) GetByRoomCode(code string) (*entity.Quiz, error) {
	return s.quizRepo.GetByRoomCode(code)
}

// GetWithQuestions возвращает комнату вместе с вопросами
func (s *QuizService) GetWithQuestions(code string) (*entity.Quiz, error) {
	return s.quizRepo.GetWithQuestions(code)
}

// MarkInactive закрывает комнату без смены статуса
func (s *QuizService) MarkInactive(quizID uint) error {
	return s.quizRepo.MarkInactive(quizID)
}

// ListByCreator возвращает комнаты пользователя
func (s *QuizService) ListByCreator(creatorID uint, limit, offset int) ([]entity.Quiz, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.quizRepo.ListByCreator(creatorID, limit, offset)
}
