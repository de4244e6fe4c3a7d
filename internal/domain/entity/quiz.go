package entity

import (
	"time"
)

// Константы статусов комнаты
const (
	QuizStatusActive   = "active"
	QuizStatusAborted  = "aborted"
	QuizStatusFinished = "finished"
)

// RoomCodeLength — длина кода комнаты (6 цифр)
const RoomCodeLength = 6

// Quiz представляет одну сгенерированную викторину (комнату)
type Quiz struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatorID   uint       `gorm:"not null;index" json:"creator_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"size:500;not null;default:''" json:"description"`
	Difficulty  int        `gorm:"not null;default:1" json:"difficulty"` // 1..5
	Duration    int        `gorm:"not null" json:"duration"`             // минуты
	TopicFocus  string     `gorm:"size:255;not null;default:''" json:"topic_focus"`
	RoomCode    string     `gorm:"size:6;not null;uniqueIndex" json:"room_code"`
	Status      string     `gorm:"size:20;not null;default:'active';index" json:"status"`
	IsActive    bool       `gorm:"not null;default:true;index" json:"is_active"`
	Questions   []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsAborted проверяет, была ли комната прервана создателем
func (q *Quiz) IsAborted() bool {
	return q.Status == QuizStatusAborted
}

// IsCreator проверяет, является ли пользователь создателем комнаты
func (q *Quiz) IsCreator(userID uint) bool {
	return q.CreatorID == userID
}

// ValidDifficulty проверяет, что сложность находится в диапазоне 1..5
func ValidDifficulty(d int) bool {
	return d >= 1 && d <= 5
}
