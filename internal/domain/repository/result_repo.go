package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// ResultRepository определяет методы для работы с результатами
type ResultRepository interface {
	// Upsert создает или перезаписывает единственный результат пары (quiz, participant).
	Upsert(result *entity.QuizResult) error
	// GetAllForQuiz возвращает все результаты комнаты вместе с участниками.
	GetAllForQuiz(quizID uint) ([]entity.QuizResult, error)
	// UpdateRank точечно сохраняет ранг одной записи.
	UpdateRank(tx *gorm.DB, resultID uint, rank int) error
}
