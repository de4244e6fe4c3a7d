package dto

import (
	"time"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

// NoteResponse представляет конспект в формате для ответа клиенту
type NoteResponse struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	Preference string    `json:"preference,omitempty"`
	HTML       string    `json:"html"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewNoteResponse создает DTO для конспекта
func NewNoteResponse(note *entity.Note) *NoteResponse {
	if note == nil {
		return nil
	}
	return &NoteResponse{
		ID:         note.ID,
		Title:      note.Title,
		Preference: note.Preference,
		HTML:       note.HTML,
		CreatedAt:  note.CreatedAt,
	}
}

// NewNoteListResponse создает список DTO без тяжелого HTML-поля
func NewNoteListResponse(notes []entity.Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, NoteResponse{
			ID:         notes[i].ID,
			Title:      notes[i].Title,
			Preference: notes[i].Preference,
			CreatedAt:  notes[i].CreatedAt,
		})
	}
	return out
}
