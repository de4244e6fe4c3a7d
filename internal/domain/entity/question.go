package entity

import (
	"time"
)

// OptionLabels — четыре фиксированные метки вариантов ответа
var OptionLabels = []string{"A", "B", "C", "D"}

// Question представляет вопрос викторины с четырьмя вариантами ответа
type Question struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	QuizID        uint      `gorm:"not null;index" json:"quiz_id"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	OptionA       string    `gorm:"size:255;not null" json:"option_a"`
	OptionB       string    `gorm:"size:255;not null" json:"option_b"`
	OptionC       string    `gorm:"size:255;not null" json:"option_c"`
	OptionD       string    `gorm:"size:255;not null" json:"option_d"`
	CorrectOption string    `gorm:"size:1;not null" json:"-"` // Скрыто от клиента
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, совпадает ли выбранная метка с правильной
func (q *Question) IsCorrect(selectedLabel string) bool {
	return selectedLabel == q.CorrectOption
}

// Option возвращает текст варианта по метке; пустая строка для неизвестной метки
func (q *Question) Option(label string) string {
	switch label {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// Options возвращает все четыре варианта в порядке меток
func (q *Question) Options() []string {
	return []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// IsValidLabel проверяет, что метка — одна из четырех фиксированных
func IsValidLabel(label string) bool {
	for _, l := range OptionLabels {
		if l == label {
			return true
		}
	}
	return false
}

// Validate проверяет инвариант вопроса: непустой текст, четыре непустых
// варианта и корректная метка правильного ответа
func (q *Question) Validate() bool {
	if q.Text == "" {
		return false
	}
	for _, opt := range q.Options() {
		if opt == "" {
			return false
		}
	}
	return IsValidLabel(q.CorrectOption)
}
