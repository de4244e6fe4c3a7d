package repository

import (
	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// NoteRepository определяет методы для работы с конспектами
type NoteRepository interface {
	Create(note *entity.Note) error
	GetByID(id uint) (*entity.Note, error)
	// GetLatestByUser возвращает последний сохраненный конспект пользователя.
	GetLatestByUser(userID uint) (*entity.Note, error)
	ListByUser(userID uint, limit, offset int) ([]entity.Note, error)
}
