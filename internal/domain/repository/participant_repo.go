package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// ParticipantRepository определяет методы для работы с участниками комнат
type ParticipantRepository interface {
	// GetOrCreate атомарно возвращает существующую запись (quiz, user) или
	// создает новую. Конкурентные join-ы не должны приводить к дублям:
	// уникальность обеспечивается индексом idx_quiz_user, не блокировками.
	GetOrCreate(participant *entity.Participant) (*entity.Participant, bool, error)
	GetByQuizAndUser(quizID, userID uint) (*entity.Participant, error)
	// ListByQuiz возвращает участников в порядке присоединения.
	ListByQuiz(quizID uint) ([]entity.Participant, error)
	Update(participant *entity.Participant) error
	Delete(id uint) error
	// DeleteAllForQuiz удаляет всех участников комнаты (abort создателем).
	DeleteAllForQuiz(tx *gorm.DB, quizID uint) error
}
