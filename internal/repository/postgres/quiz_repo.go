package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий комнат
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create сохраняет комнату в БД. Коллизия кода комнаты (unique violation по
// room_code) возвращается как ErrRoomCodeTaken, чтобы сервис мог повторить
// попытку с новым кодом.
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	if err := r.db.Create(quiz).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", repository.ErrRoomCodeTaken, quiz.RoomCode)
		}
		return err
	}
	return nil
}

// GetByID возвращает комнату по ID
func (r *QuizRepo) GetByID(id uint) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetByRoomCode возвращает комнату по коду независимо от статуса
func (r *QuizRepo) GetByRoomCode(code string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Where("room_code = ?", code).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetWithQuestions возвращает комнату вместе с вопросами
func (r *QuizRepo) GetWithQuestions(code string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Preload("Questions").Where("room_code = ?", code).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// UpdateStatus точечно обновляет статус комнаты. Терминальные статусы
// (aborted, finished) одновременно снимают is_active.
func (r *QuizRepo) UpdateStatus(tx *gorm.DB, quizID uint, status string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	updates := map[string]interface{}{"status": status}
	if status == entity.QuizStatusAborted || status == entity.QuizStatusFinished {
		updates["is_active"] = false
	}
	return db.Model(&entity.Quiz{}).Where("id = ?", quizID).Updates(updates).Error
}

// MarkInactive выставляет is_active=false без изменения статуса
func (r *QuizRepo) MarkInactive(quizID uint) error {
	return r.db.Model(&entity.Quiz{}).Where("id = ?", quizID).Update("is_active", false).Error
}

// ListByCreator возвращает комнаты, созданные пользователем, с пагинацией
func (r *QuizRepo) ListByCreator(creatorID uint, limit, offset int) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&quizzes).Error
	return quizzes, err
}

// Delete удаляет комнату; вопросы удаляются каскадно
func (r *QuizRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Quiz{}, id).Error
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
