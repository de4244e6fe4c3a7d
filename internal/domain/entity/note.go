package entity

import "time"

// Note хранит сгенерированный AI конспект пользователя
type Note struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Preference string    `gorm:"size:255;not null;default:''" json:"preference"` // пожелание к оформлению (detailed, short, ...)
	HTML       string    `gorm:"type:text;not null" json:"html"`
	SourceText string    `gorm:"type:text;not null;default:''" json:"-"` // исходный текст для ответов на вопросы
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Note) TableName() string {
	return "notes"
}
