package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// GetOrCreate атомарно возвращает существующую запись (quiz, user) или создает
// новую. Использует INSERT ... ON CONFLICT DO NOTHING по индексу idx_quiz_user,
// поэтому конкурентные join-ы одного пользователя не создают дублей.
// Второй возвращаемый флаг — true, если запись была создана.
func (r *ParticipantRepo) GetOrCreate(participant *entity.Participant) (*entity.Participant, bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quiz_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(participant)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected > 0 {
		return participant, true, nil
	}

	// Конфликт: запись уже существует, перечитываем ее
	existing, err := r.GetByQuizAndUser(participant.QuizID, participant.UserID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByQuizAndUser возвращает участника по паре (quiz, user)
func (r *ParticipantRepo) GetByQuizAndUser(quizID, userID uint) (*entity.Participant, error) {
	var participant entity.Participant
	err := r.db.Where("quiz_id = ? AND user_id = ?", quizID, userID).First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// ListByQuiz возвращает участников комнаты в порядке присоединения
func (r *ParticipantRepo) ListByQuiz(quizID uint) ([]entity.Participant, error) {
	var participants []entity.Participant
	err := r.db.Where("quiz_id = ?", quizID).Order("joined_at ASC, id ASC").Find(&participants).Error
	return participants, err
}

// Update сохраняет изменения участника
func (r *ParticipantRepo) Update(participant *entity.Participant) error {
	return r.db.Save(participant).Error
}

// Delete удаляет одного участника
func (r *ParticipantRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Participant{}, id).Error
}

// DeleteAllForQuiz удаляет всех участников комнаты в переданной транзакции
func (r *ParticipantRepo) DeleteAllForQuiz(tx *gorm.DB, quizID uint) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Where("quiz_id = ?", quizID).Delete(&entity.Participant{}).Error
}
