package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	// ReplaceForQuiz атомарно заменяет все вопросы комнаты (delete-then-insert).
	ReplaceForQuiz(tx *gorm.DB, quizID uint, questions []entity.Question) error
	GetByQuizID(quizID uint) ([]entity.Question, error)
	CountByQuizID(quizID uint) (int64, error)
}
