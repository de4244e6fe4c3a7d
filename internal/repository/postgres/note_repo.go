package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
)

// NoteRepo реализует repository.NoteRepository
type NoteRepo struct {
	db *gorm.DB
}

// NewNoteRepo создает новый репозиторий конспектов
func NewNoteRepo(db *gorm.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func (r *NoteRepo) Create(note *entity.Note) error {
	return r.db.Create(note).Error
}

func (r *NoteRepo) GetByID(id uint) (*entity.Note, error) {
	var note entity.Note
	err := r.db.First(&note, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// GetLatestByUser возвращает последний сохраненный конспект пользователя
func (r *NoteRepo) GetLatestByUser(userID uint) (*entity.Note, error) {
	var note entity.Note
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepo) ListByUser(userID uint, limit, offset int) ([]entity.Note, error) {
	var notes []entity.Note
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notes).Error
	return notes, err
}
