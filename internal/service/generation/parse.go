package generation

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// GeneratedQuestion — один вопрос из ответа генератора
type GeneratedQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

// Valid проверяет структурную корректность сгенерированного вопроса:
// непустой текст, ровно 4 непустых варианта, индекс ответа в 0..3.
func (q GeneratedQuestion) Valid() bool {
	if strings.TrimSpace(q.Question) == "" {
		return false
	}
	if len(q.Options) != 4 {
		return false
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return false
		}
	}
	return q.AnswerIndex >= 0 && q.AnswerIndex <= 3
}

// ParseQuestions разбирает ответ генератора в список вопросов.
// Markdown-ограждения срезаются, некорректные элементы отбрасываются
// c предупреждением. Ноль валидных вопросов — ошибка: структурно
// испорченный ответ целиком фатален для вызвавшего запроса.
func ParseQuestions(raw string) ([]GeneratedQuestion, error) {
	cleaned := stripFences(raw)

	var items []GeneratedQuestion
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("generator returned invalid JSON: %w", err)
	}

	valid := make([]GeneratedQuestion, 0, len(items))
	for i, item := range items {
		if !item.Valid() {
			log.Printf("[Generation] Вопрос %d отброшен как некорректный", i)
			continue
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("generator returned no valid questions")
	}
	return valid, nil
}

// stripFences срезает markdown-ограждения вокруг JSON
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	}
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
