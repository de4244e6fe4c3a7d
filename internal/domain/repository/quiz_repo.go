package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// QuizRepository определяет методы для работы с комнатами-викторинами
type QuizRepository interface {
	// Create сохраняет комнату; при конфликте уникальности room_code
	// возвращает ErrRoomCodeTaken.
	Create(quiz *entity.Quiz) error
	GetByID(id uint) (*entity.Quiz, error)
	GetByRoomCode(code string) (*entity.Quiz, error)
	GetWithQuestions(code string) (*entity.Quiz, error)
	// UpdateStatus точечно обновляет status (и is_active для терминальных
	// статусов). При nil tx выполняется вне транзакции.
	UpdateStatus(tx *gorm.DB, quizID uint, status string) error
	// MarkInactive выставляет is_active=false, не трогая остальные поля.
	MarkInactive(quizID uint) error
	ListByCreator(creatorID uint, limit, offset int) ([]entity.Quiz, error)
	Delete(id uint) error
}
