package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
	"github.com/yourusername/study-assistant-api/internal/service/generation"
)

const (
	// selfQuizQuestionCount — число вопросов в самопроверке по конспекту
	selfQuizQuestionCount = 10

	// selfQuizTTL — срок жизни незавершенной самопроверки в Redis
	selfQuizTTL = time.Hour
)

// selfQuizKey формирует ключ Redis для сессии самопроверки
func selfQuizKey(id string) string {
	return fmt.Sprintf("selfquiz:%s", id)
}

// selfQuizState — состояние незавершенной самопроверки, сериализуемое в Redis.
// Правильные ответы хранятся только здесь и раскрываются при проверке.
type selfQuizState struct {
	UserID    uint                           `json:"user_id"`
	NoteID    uint                           `json:"note_id"`
	Questions []generation.GeneratedQuestion `json:"questions"`
}

// SelfQuizQuestion — вопрос самопроверки без правильного ответа
type SelfQuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// SelfQuizSession — запущенная самопроверка, выдаваемая клиенту
type SelfQuizSession struct {
	QuizID    string             `json:"quiz_id"`
	NoteID    uint               `json:"note_id"`
	Questions []SelfQuizQuestion `json:"questions"`
}

// SelfQuizReview — разбор одного вопроса после проверки ответов
type SelfQuizReview struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	UserIndex    int      `json:"user_index"`
	Correct      bool     `json:"correct"`
}

// SelfQuizResult — итог самопроверки с поштучным разбором
type SelfQuizResult struct {
	Score  int              `json:"score"`
	Total  int              `json:"total"`
	Review []SelfQuizReview `json:"review"`
}

// SelfQuizService проводит одиночную самопроверку по конспекту: вопросы
// генерируются из сохраненного конспекта, состояние живет в Redis до
// первой проверки ответов и сгорает после нее.
type SelfQuizService struct {
	cache     repository.CacheRepository
	noteRepo  repository.NoteRepository
	generator generation.Generator
}

// NewSelfQuizService создает новый сервис самопроверки
func NewSelfQuizService(
	cache repository.CacheRepository,
	noteRepo repository.NoteRepository,
	generator generation.Generator,
) *SelfQuizService {
	return &SelfQuizService{
		cache:     cache,
		noteRepo:  noteRepo,
		generator: generator,
	}
}

// Start генерирует вопросы по конспекту и открывает сессию самопроверки.
// При noteID == 0 берется последний конспект пользователя. Клиенту
// возвращаются вопросы без правильных ответов.
func (s *SelfQuizService) Start(ctx context.Context, userID uint, noteID uint) (*SelfQuizSession, error) {
	var note *entity.Note
	var err error
	if noteID == 0 {
		note, err = s.loadLatest(userID)
	} else {
		note, err = s.loadOwned(userID, noteID)
	}
	if err != nil {
		return nil, err
	}

	grounding := note.SourceText
	if grounding == "" {
		grounding = note.HTML
	}

	prompt := generation.BuildQuizPrompt(grounding, selfQuizQuestionCount, 3, "")
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("self-quiz generation failed: %w", err)
	}
	questions, err := generation.ParseQuestions(raw)
	if err != nil {
		return nil, fmt.Errorf("self-quiz generation failed: %w", err)
	}

	state := selfQuizState{
		UserID:    userID,
		NoteID:    note.ID,
		Questions: questions,
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode self-quiz state: %w", err)
	}

	id := uuid.New().String()
	stored, err := s.cache.SetNX(selfQuizKey(id), payload, selfQuizTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to store self-quiz state: %w", err)
	}
	if !stored {
		return nil, fmt.Errorf("%w: self-quiz id collision", apperrors.ErrConflict)
	}

	log.Printf("[SelfQuizService] Самопроверка %s открыта: пользователь ID=%d, конспект ID=%d, вопросов %d",
		id, userID, note.ID, len(questions))

	out := make([]SelfQuizQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, SelfQuizQuestion{Question: q.Question, Options: q.Options})
	}
	return &SelfQuizSession{QuizID: id, NoteID: note.ID, Questions: out}, nil
}

// Grade проверяет ответы открытой самопроверки и закрывает ее. Сессия
// одноразовая: повторная проверка того же quiz_id вернет ErrNotFound.
// Ответ -1 (или индекс вне 0..3) считается пропуском вопроса.
func (s *SelfQuizService) Grade(userID uint, quizID string, answers []int) (*SelfQuizResult, error) {
	raw, err := s.cache.Get(selfQuizKey(quizID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: self-quiz not found or expired", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load self-quiz state: %w", err)
	}

	var state selfQuizState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode self-quiz state: %w", err)
	}
	if state.UserID != userID {
		return nil, fmt.Errorf("%w: self-quiz belongs to another user", apperrors.ErrForbidden)
	}
	if len(answers) != len(state.Questions) {
		return nil, fmt.Errorf("%w: expected %d answers, got %d",
			apperrors.ErrValidation, len(state.Questions), len(answers))
	}

	result := &SelfQuizResult{Total: len(state.Questions)}
	for i, q := range state.Questions {
		userIndex := answers[i]
		if userIndex < 0 || userIndex > 3 {
			userIndex = -1
		}
		correct := userIndex == q.AnswerIndex
		if correct {
			result.Score++
		}
		result.Review = append(result.Review, SelfQuizReview{
			Question:     q.Question,
			Options:      q.Options,
			CorrectIndex: q.AnswerIndex,
			UserIndex:    userIndex,
			Correct:      correct,
		})
	}

	if err := s.cache.Delete(selfQuizKey(quizID)); err != nil {
		log.Printf("[SelfQuizService] Не удалось удалить состояние самопроверки %s: %v", quizID, err)
	}

	log.Printf("[SelfQuizService] Самопроверка %s закрыта: пользователь ID=%d, результат %d/%d",
		quizID, userID, result.Score, result.Total)
	return result, nil
}

// loadLatest возвращает последний конспект пользователя
func (s *SelfQuizService) loadLatest(userID uint) (*entity.Note, error) {
	note, err := s.noteRepo.GetLatestByUser(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no stored notes to quiz on", apperrors.ErrNotFound)
		}
		return nil, err
	}
	return note, nil
}

// loadOwned возвращает конспект по ID с проверкой владельца
func (s *SelfQuizService) loadOwned(userID uint, noteID uint) (*entity.Note, error) {
	note, err := s.noteRepo.GetByID(noteID)
	if err != nil {
		return nil, err
	}
	if note.UserID != userID {
		return nil, fmt.Errorf("%w: note belongs to another user", apperrors.ErrForbidden)
	}
	return note, nil
}
