package dto

import (
	"time"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// QuestionOption — один вариант ответа с меткой
type QuestionOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// Правильный ответ никогда не включается.
type QuestionResponse struct {
	ID      uint             `json:"id"`
	Text    string           `json:"text"`
	Options []QuestionOption `json:"options"`
}

// RoomResponse представляет комнату в формате для ответа клиенту
type RoomResponse struct {
	ID            uint               `json:"id"`
	RoomCode      string             `json:"room_code"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	Difficulty    int                `json:"difficulty"`
	Duration      int                `json:"duration"`
	TopicFocus    string             `json:"topic_focus,omitempty"`
	Status        string             `json:"status"`
	IsActive      bool               `json:"is_active"`
	QuestionCount int                `json:"question_count"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// QuizPageResponse — страница викторины для участника
type QuizPageResponse struct {
	RoomCode     string             `json:"room_code"`
	Title        string             `json:"title"`
	Questions    []QuestionResponse `json:"questions"`
	RemainingSec int                `json:"remaining_sec"`
	EndsAt       time.Time          `json:"ends_at"`
}

// RedirectResponse — подсказка клиенту о навигации при конфликте состояния
type RedirectResponse struct {
	Redirect string `json:"redirect"`
	Reason   string `json:"reason,omitempty"`
}

// ResultRowResponse — одна строка таблицы результатов
type ResultRowResponse struct {
	Rank        int    `json:"rank"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	TimeTakenMs *int64 `json:"time_taken_ms,omitempty"`
}

// ResultsResponse — таблица результатов комнаты
type ResultsResponse struct {
	RoomCode string              `json:"room_code"`
	Title    string              `json:"title"`
	Status   string              `json:"status"`
	Results  []ResultRowResponse `json:"results"`
}

// NewQuestionResponse создает DTO для вопроса без правильного ответа
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	options := make([]QuestionOption, 0, len(entity.OptionLabels))
	for _, label := range entity.OptionLabels {
		options = append(options, QuestionOption{Label: label, Text: q.Option(label)})
	}
	return QuestionResponse{
		ID:      q.ID,
		Text:    q.Text,
		Options: options,
	}
}

// NewRoomResponse создает DTO для комнаты
func NewRoomResponse(quiz *entity.Quiz, includeQuestions bool) *RoomResponse {
	if quiz == nil {
		return nil
	}

	var questionsDTO []QuestionResponse
	if includeQuestions {
		questionsDTO = make([]QuestionResponse, len(quiz.Questions))
		for i := range quiz.Questions {
			questionsDTO[i] = NewQuestionResponse(&quiz.Questions[i])
		}
	}

	return &RoomResponse{
		ID:            quiz.ID,
		RoomCode:      quiz.RoomCode,
		Title:         quiz.Title,
		Description:   quiz.Description,
		Difficulty:    quiz.Difficulty,
		Duration:      quiz.Duration,
		TopicFocus:    quiz.TopicFocus,
		Status:        quiz.Status,
		IsActive:      quiz.IsActive,
		QuestionCount: len(quiz.Questions),
		Questions:     questionsDTO,
		CreatedAt:     quiz.CreatedAt,
	}
}

// NewResultsResponse создает DTO таблицы результатов
func NewResultsResponse(quiz *entity.Quiz, results []entity.QuizResult) *ResultsResponse {
	rows := make([]ResultRowResponse, 0, len(results))
	for _, r := range results {
		name := ""
		if r.Participant != nil {
			name = r.Participant.Name
		}
		rows = append(rows, ResultRowResponse{
			Rank:        r.Rank,
			Name:        name,
			Score:       r.Score,
			TimeTakenMs: r.TimeTakenMs,
		})
	}
	return &ResultsResponse{
		RoomCode: quiz.RoomCode,
		Title:    quiz.Title,
		Status:   quiz.Status,
		Results:  rows,
	}
}
