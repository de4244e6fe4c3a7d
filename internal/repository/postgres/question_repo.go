package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// ReplaceForQuiz атомарно заменяет все вопросы комнаты: delete-then-insert
// в рамках переданной транзакции
func (r *QuestionRepo) ReplaceForQuiz(tx *gorm.DB, quizID uint, questions []entity.Question) error {
	if tx == nil {
		tx = r.db
	}
	if err := tx.Where("quiz_id = ?", quizID).Delete(&entity.Question{}).Error; err != nil {
		return err
	}
	for i := range questions {
		questions[i].QuizID = quizID
	}
	if len(questions) == 0 {
		return nil
	}
	return tx.Create(&questions).Error
}

// GetByQuizID возвращает все вопросы комнаты в порядке создания
func (r *QuestionRepo) GetByQuizID(quizID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("quiz_id = ?", quizID).Order("id").Find(&questions).Error
	return questions, err
}

// CountByQuizID возвращает количество вопросов комнаты
func (r *QuestionRepo) CountByQuizID(quizID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}
