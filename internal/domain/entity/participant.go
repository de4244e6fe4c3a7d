package entity

import (
	"time"
)

// Participant представляет одного присоединившегося пользователя в комнате.
// Пара (quiz_id, user_id) уникальна: повторный join возвращает существующую запись.
type Participant struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuizID     uint      `gorm:"not null;index;uniqueIndex:idx_quiz_user" json:"quiz_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_quiz_user" json:"user_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	JoinedAt   time.Time `gorm:"not null;index" json:"joined_at"`
	Score      int       `gorm:"not null;default:0" json:"score"`
	HasStarted bool      `gorm:"not null;default:false" json:"has_started"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Participant) TableName() string {
	return "participants"
}
