package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Upsert создает или перезаписывает результат пары (quiz, participant).
// Повторная отправка ответов заменяет прежний результат, ранг сбрасывается
// в 0 (unranked) до следующего пересчета.
func (r *ResultRepo) Upsert(result *entity.QuizResult) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quiz_id"}, {Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "time_taken_ms", "rank", "updated_at"}),
	}).Create(result).Error
}

// GetAllForQuiz возвращает все результаты комнаты вместе с участниками.
// Порядок здесь не гарантируется: ранжирование — забота сервиса.
func (r *ResultRepo) GetAllForQuiz(quizID uint) ([]entity.QuizResult, error) {
	var results []entity.QuizResult
	err := r.db.Preload("Participant").Where("quiz_id = ?", quizID).Find(&results).Error
	// Пустой слайс — валидный результат, ErrRecordNotFound здесь не бывает
	return results, err
}

// UpdateRank точечно сохраняет ранг одной записи в переданной транзакции
func (r *ResultRepo) UpdateRank(tx *gorm.DB, resultID uint, rank int) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Model(&entity.QuizResult{}).Where("id = ?", resultID).Update("rank", rank).Error
}
