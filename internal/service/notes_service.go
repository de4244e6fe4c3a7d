package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
	"github.com/yourusername/study-assistant-api/internal/service/generation"
)

// TextExtractor извлекает учебный текст из загруженного файла.
// Реализация для PDF подключается снаружи; простой текст проходит как есть.
type TextExtractor interface {
	Extract(filename string, data []byte) (string, error)
}

// PlainTextExtractor трактует содержимое файла как UTF-8 текст
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(filename string, data []byte) (string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: file %s contains no text", apperrors.ErrValidation, filename)
	}
	return text, nil
}

// NotesService генерирует HTML-конспекты и отвечает на вопросы по ним
type NotesService struct {
	noteRepo  repository.NoteRepository
	generator generation.Generator
	extractor TextExtractor
}

// NewNotesService создает новый сервис конспектов
func NewNotesService(
	noteRepo repository.NoteRepository,
	generator generation.Generator,
	extractor TextExtractor,
) *NotesService {
	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	return &NotesService{
		noteRepo:  noteRepo,
		generator: generator,
		extractor: extractor,
	}
}

// ExtractText извлекает текст из загруженного файла
func (s *NotesService) ExtractText(filename string, data []byte) (string, error) {
	return s.extractor.Extract(filename, data)
}

// GenerateNote генерирует HTML-конспект по исходному тексту и сохраняет его
func (s *NotesService) GenerateNote(ctx context.Context, userID uint, title, sourceText, preference string) (*entity.Note, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, fmt.Errorf("%w: source text is empty", apperrors.ErrValidation)
	}
	if title == "" {
		title = "Study notes"
	}

	prompt := generation.BuildNotesPrompt(sourceText, preference)
	html, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("notes generation failed: %w", err)
	}
	html = strings.TrimSpace(html)
	if html == "" {
		return nil, fmt.Errorf("notes generation returned empty result")
	}

	note := &entity.Note{
		UserID:     userID,
		Title:      title,
		Preference: preference,
		HTML:       html,
		SourceText: sourceText,
	}
	if err := s.noteRepo.Create(note); err != nil {
		return nil, fmt.Errorf("failed to store note: %w", err)
	}

	log.Printf("[NotesService] Конспект ID=%d создан для пользователя ID=%d", note.ID, userID)
	return note, nil
}

// AnswerDoubt отвечает на вопрос, опираясь на последний сохраненный
// конспект пользователя. Без сохраненного конспекта вопрос отклоняется.
func (s *NotesService) AnswerDoubt(ctx context.Context, userID uint, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is empty", apperrors.ErrValidation)
	}

	note, err := s.noteRepo.GetLatestByUser(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", fmt.Errorf("%w: no stored notes to answer from", apperrors.ErrNotFound)
		}
		return "", err
	}

	grounding := note.SourceText
	if grounding == "" {
		grounding = note.HTML
	}

	prompt := generation.BuildDoubtPrompt(grounding, question)
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("doubt answering failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// ListNotes возвращает конспекты пользователя
func (s *NotesService) ListNotes(userID uint, limit, offset int) ([]entity.Note, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.noteRepo.ListByUser(userID, limit, offset)
}
