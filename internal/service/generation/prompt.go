package generation

import (
	"fmt"
	"math"
	"strings"
)

// Границы эвристики числа вопросов
const (
	minQuestions         = 5
	maxQuestions         = 50
	maxRequestedOverride = 100
	minutesPerQuestion   = 1.7
)

// QuestionCount вычисляет число вопросов для викторины. Явно запрошенное
// количество в диапазоне 5..100 используется как есть; иначе количество
// выводится из длительности и зажимается в 5..50.
func QuestionCount(requested, durationMinutes int) int {
	if requested >= minQuestions && requested <= maxRequestedOverride {
		return requested
	}
	derived := int(math.Round(float64(durationMinutes) / minutesPerQuestion))
	if derived < minQuestions {
		return minQuestions
	}
	if derived > maxQuestions {
		return maxQuestions
	}
	return derived
}

var difficultyNames = map[int]string{
	1: "very easy",
	2: "easy",
	3: "medium",
	4: "hard",
	5: "very hard",
}

// BuildQuizPrompt строит промпт генерации вопросов по исходному тексту
func BuildQuizPrompt(sourceText string, count, difficulty int, topicFocus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a quiz generator. Based on the study material below, generate exactly %d multiple-choice questions of %s difficulty.\n",
		count, difficultyNames[difficulty])
	if topicFocus != "" {
		fmt.Fprintf(&b, "Focus the questions on the following topic: %s.\n", topicFocus)
	}
	b.WriteString(`Respond with ONLY a valid JSON array (no markdown, no code fences, no explanations) in this exact format:
[
  {"question": "Question text?", "options": ["first", "second", "third", "fourth"], "answer_index": 0}
]
Rules:
- Each question must have exactly 4 options.
- "answer_index" is the zero-based index of the single correct option.
- Questions must be answerable from the material alone.
- Return ONLY the JSON array, nothing else.

Study material:
`)
	b.WriteString(sourceText)
	return b.String()
}

// BuildNotesPrompt строит промпт генерации HTML-конспекта
func BuildNotesPrompt(sourceText, preference string) string {
	var b strings.Builder
	b.WriteString("You are a study assistant. Convert the material below into well-structured HTML study notes.\n")
	if preference != "" {
		fmt.Fprintf(&b, "Follow this formatting preference from the student: %s.\n", preference)
	}
	b.WriteString(`Use only these tags: h2, h3, p, ul, ol, li, strong, em, table, tr, th, td.
Do not include html, head or body tags, markdown, or code fences. Return only the HTML fragment.

Material:
`)
	b.WriteString(sourceText)
	return b.String()
}

// BuildDoubtPrompt строит промпт ответа на вопрос по сохраненному конспекту
func BuildDoubtPrompt(noteText, question string) string {
	var b strings.Builder
	b.WriteString("You are a study assistant. Answer the student's question using ONLY the notes below. If the notes do not contain the answer, say so briefly.\n\nNotes:\n")
	b.WriteString(noteText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
