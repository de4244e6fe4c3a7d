package handler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/study-assistant-api/internal/handler/dto"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
	"github.com/yourusername/study-assistant-api/internal/service"
)

// maxUploadBytes — предел размера загружаемого файла с учебным материалом
const maxUploadBytes = 10 << 20

// NotesHandler обрабатывает запросы генерации конспектов
type NotesHandler struct {
	notesService    *service.NotesService
	selfQuizService *service.SelfQuizService
}

// NewNotesHandler создает новый обработчик конспектов
func NewNotesHandler(notesService *service.NotesService, selfQuizService *service.SelfQuizService) *NotesHandler {
	return &NotesHandler{
		notesService:    notesService,
		selfQuizService: selfQuizService,
	}
}

// Generate генерирует HTML-конспект из загруженного файла или текста поля.
// Принимает multipart-форму: file (опционально), text (опционально),
// title, preference. Хотя бы один источник текста обязателен.
// POST /api/notes/generate
func (h *NotesHandler) Generate(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	title := c.PostForm("title")
	preference := c.PostForm("preference")
	sourceText := c.PostForm("text")

	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
			return
		}
		data, filename, err := h.readUpload(c, file.Filename)
		if err != nil {
			log.Printf("[NotesHandler] Ошибка чтения загруженного файла: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}
		extracted, err := h.notesService.ExtractText(filename, data)
		if err != nil {
			h.handleNotesError(c, err)
			return
		}
		sourceText = extracted
		if title == "" {
			title = file.Filename
		}
	}

	if sourceText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either file or text is required"})
		return
	}

	note, err := h.notesService.GenerateNote(c.Request.Context(), userID, title, sourceText, preference)
	if err != nil {
		h.handleNotesError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewNoteResponse(note))
}

// readUpload сохраняет загрузку во временный файл со случайным именем и
// читает его содержимое. Имя из формы не используется в путях напрямую.
func (h *NotesHandler) readUpload(c *gin.Context, originalName string) ([]byte, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", err
	}

	tmpName := fmt.Sprintf("upload-%s%s", uuid.New().String(), filepath.Ext(originalName))
	tmpPath := filepath.Join(os.TempDir(), tmpName)
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		return nil, "", err
	}
	defer os.Remove(tmpPath)

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}
	return data, tmpName, nil
}

// AskRequest представляет вопрос по сохраненному конспекту
type AskRequest struct {
	Question string `json:"question" binding:"required,min=3,max=1000"`
}

// Ask отвечает на вопрос по последнему конспекту пользователя
// POST /api/notes/ask
func (h *NotesHandler) Ask(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.notesService.AnswerDoubt(c.Request.Context(), userID, req.Question)
	if err != nil {
		h.handleNotesError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// List возвращает конспекты пользователя
// GET /api/notes
func (h *NotesHandler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notes, err := h.notesService.ListNotes(userID, limit, offset)
	if err != nil {
		h.handleNotesError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": dto.NewNoteListResponse(notes)})
}

// SelfQuizRequest представляет запрос на самопроверку по конспекту.
// При нулевом note_id берется последний конспект пользователя.
type SelfQuizRequest struct {
	NoteID uint `json:"note_id"`
}

// SelfQuiz открывает самопроверку: генерирует вопросы по конспекту
// и возвращает их без правильных ответов
// POST /api/notes/quiz
func (h *NotesHandler) SelfQuiz(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req SelfQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.selfQuizService.Start(c.Request.Context(), userID, req.NoteID)
	if err != nil {
		h.handleNotesError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// SelfQuizSubmitRequest представляет ответы на вопросы самопроверки
type SelfQuizSubmitRequest struct {
	QuizID  string `json:"quiz_id" binding:"required,uuid"`
	Answers []int  `json:"answers" binding:"required"`
}

// SelfQuizSubmit проверяет ответы самопроверки и возвращает разбор
// POST /api/notes/quiz/submit
func (h *NotesHandler) SelfQuizSubmit(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req SelfQuizSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.selfQuizService.Grade(userID, req.QuizID, req.Answers)
	if err != nil {
		h.handleNotesError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleNotesError преобразует ошибки конспектов в HTTP-ответы
func (h *NotesHandler) handleNotesError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in NotesHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
