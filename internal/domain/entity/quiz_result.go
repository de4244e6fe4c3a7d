package entity

import (
	"time"
)

// QuizResult представляет итоговый результат участника в комнате.
// Не более одной записи на пару (quiz, participant); rank — производное
// значение, пересчитываемое при каждом просмотре результатов.
type QuizResult struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	QuizID        uint         `gorm:"not null;index;uniqueIndex:idx_quiz_participant" json:"quiz_id"`
	ParticipantID uint         `gorm:"not null;uniqueIndex:idx_quiz_participant" json:"participant_id"`
	Score         int          `gorm:"not null;default:0" json:"score"`
	TimeTakenMs   *int64       `json:"time_taken_ms,omitempty"` // NULL = время неизвестно
	Rank          int          `gorm:"not null;default:0;index:idx_quiz_rank" json:"rank"`
	Participant   *Participant `gorm:"foreignKey:ParticipantID" json:"participant,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizResult) TableName() string {
	return "quiz_results"
}

// TimeTaken возвращает затраченное время как time.Duration (0 если неизвестно)
func (r *QuizResult) TimeTaken() time.Duration {
	if r.TimeTakenMs == nil {
		return 0
	}
	return time.Duration(*r.TimeTakenMs) * time.Millisecond
}

// SortKey возвращает ключ сортировки результата: очки по убыванию,
// затем время по возрастанию. Отсутствующее время считается наихудшим.
func (r *QuizResult) SortKey() (int, int64) {
	t := int64(1<<63 - 1)
	if r.TimeTakenMs != nil {
		t = *r.TimeTakenMs
	}
	return r.Score, t
}
