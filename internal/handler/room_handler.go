package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
	"github.com/yourusername/study-assistant-api/internal/domain/repository"
	"github.com/yourusername/study-assistant-api/internal/handler/dto"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
	"github.com/yourusername/study-assistant-api/internal/service"
)

// RoomHandler обрабатывает запросы комнат-викторин
type RoomHandler struct {
	quizService   *service.QuizService
	lobbyService  *service.LobbyService
	resultService *service.ResultService
	timingService *service.TimingService
	authService   *service.AuthService
}

// NewRoomHandler создает новый обработчик комнат
func NewRoomHandler(
	quizService *service.QuizService,
	lobbyService *service.LobbyService,
	resultService *service.ResultService,
	timingService *service.TimingService,
	authService *service.AuthService,
) *RoomHandler {
	return &RoomHandler{
		quizService:   quizService,
		lobbyService:  lobbyService,
		resultService: resultService,
		timingService: timingService,
		authService:   authService,
	}
}

// CreateRoomRequest представляет запрос на создание комнаты
type CreateRoomRequest struct {
	Title         string `json:"title" binding:"required,min=3,max=255"`
	Description   string `json:"description" binding:"omitempty,max=500"`
	Difficulty    int    `json:"difficulty" binding:"omitempty,min=1,max=5"`
	Duration      int    `json:"duration" binding:"omitempty,min=1,max=180"`
	TopicFocus    string `json:"topic_focus" binding:"omitempty,max=255"`
	QuestionCount int    `json:"question_count" binding:"omitempty,min=1,max=100"`
	SourceText    string `json:"source_text" binding:"required,min=50"`
}

// CreateRoom обрабатывает создание комнаты из учебного материала
// POST /api/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateRoom(c.Request.Context(), service.CreateRoomInput{
		CreatorID:     userID,
		Title:         req.Title,
		Description:   req.Description,
		Difficulty:    req.Difficulty,
		Duration:      req.Duration,
		TopicFocus:    req.TopicFocus,
		QuestionCount: req.QuestionCount,
		SourceText:    req.SourceText,
	})
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRoomResponse(quiz, false))
}

// JoinRequest представляет запрос на присоединение к комнате
type JoinRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// Join обрабатывает присоединение к комнате по коду
// POST /api/rooms/join
func (h *RoomHandler) Join(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participant, err := h.lobbyService.Join(req.Code, userID, req.Name)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participant": participant,
		"lobby_url":   fmt.Sprintf("/api/rooms/%s", req.Code),
	})
}

// Lobby возвращает снимок лобби
// GET /api/rooms/:code
func (h *RoomHandler) Lobby(c *gin.Context) {
	code := c.MustGet("roomCode").(string)
	userID := c.MustGet("user_id").(uint)

	snapshot, err := h.lobbyService.Status(code, userID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Status — компактный снимок для цикла опроса лобби
// GET /api/rooms/:code/status
func (h *RoomHandler) Status(c *gin.Context) {
	code := c.MustGet("roomCode").(string)
	userID := c.MustGet("user_id").(uint)

	snapshot, err := h.lobbyService.Status(code, userID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"started":  snapshot.Started,
		"aborted":  snapshot.Aborted,
		"members":  len(snapshot.Members),
		"quiz_url": snapshot.QuizURL,
	})
}

// Start запускает викторину. Запуск не создателем не является ошибкой:
// клиент молча отправляется обратно в лобби.
// POST /api/rooms/:code/start
func (h *RoomHandler) Start(c *gin.Context) {
	code := c.MustGet("roomCode").(string)
	userID := c.MustGet("user_id").(uint)

	quiz, err := h.lobbyService.Start(code, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			c.JSON(http.StatusOK, dto.RedirectResponse{Redirect: fmt.Sprintf("/api/rooms/%s", code)})
			return
		}
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_url": fmt.Sprintf("/api/rooms/%s/quiz", quiz.RoomCode),
	})
}

// Leave обрабатывает выход из комнаты
// POST /api/rooms/:code/leave
func (h *RoomHandler) Leave(c *gin.Context) {
	code := c.MustGet("roomCode").(string)
	userID := c.MustGet("user_id").(uint)

	aborted, err := h.lobbyService.Leave(code, userID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"aborted": aborted})
}

// QuizPage возвращает вопросы и оставшееся время для идущей викторины.
// Вне фазы Running клиент получает подсказку-редирект, не ошибку.
// GET /api/rooms/:code/quiz
func (h *RoomHandler) QuizPage(c *gin.Context) {
	code := c.MustGet("roomCode").(string)
	userID := c.MustGet("user_id").(uint)

	quiz, err := h.quizService.GetWithQuestions(code)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	state, err := h.timingService.ReadState(code)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	now := time.Now()
	if quiz.IsAborted() {
		c.JSON(http.StatusConflict, dto.RedirectResponse{
			Redirect: fmt.Sprintf("/api/rooms/%s", code),
			Reason:   "room aborted",
		})
		return
	}

	switch state.Phase(now) {
	case entity.PhaseAborted:
		c.JSON(http.StatusConflict, dto.RedirectResponse{
			Redirect: fmt.Sprintf("/api/rooms/%s", code),
			Reason:   "room aborted",
		})
		return
	case entity.PhaseLobby:
		c.JSON(http.StatusConflict, dto.RedirectResponse{
			Redirect: fmt.Sprintf("/api/rooms/%s", code),
			Reason:   "quiz not started",
		})
		return
	case entity.PhaseEnded:
		// Ленивый переход Running -> Ended при чтении
		if quiz.IsActive {
			if err := h.quizService.MarkInactive(quiz.ID); err != nil {
				log.Printf("[RoomHandler] Не удалось закрыть комнату %s: %v", code, err)
			}
		}
		c.JSON(http.StatusConflict, dto.RedirectResponse{
			Redirect: fmt.Sprintf("/api/rooms/%s/results", code),
			Reason:   "quiz ended",
		})
		return
	}

	// Открывший страницу пользователь идемпотентно становится участником
	name := h.participantName(c, userID)
	if _, err := h.lobbyService.EnsureParticipant(quiz, userID, name); err != nil {
		h.handleRoomError(c, err)
		return
	}

	questions := make([]dto.QuestionResponse, len(quiz.Questions))
	for i := range quiz.Questions {
		questions[i] = dto.NewQuestionResponse(&quiz.Questions[i])
	}

	c.JSON(http.StatusOK, dto.QuizPageResponse{
		RoomCode:     quiz.RoomCode,
		Title:        quiz.Title,
		Questions:    questions,
		RemainingSec: int(state.Remaining(now).Seconds()),
		EndsAt:       *state.EndsAt,
	})
}

// SubmitRequest представляет отправку ответов участника
type SubmitRequest struct {
	// Ответы: ID вопроса -> выбранная метка (A..D)
	Answers map[uint]string `json:"answers" binding:"required"`
}

// Submit принимает ответы и отправляет участника к результатам
// POST /api/rooms/:code/submit
func (h *RoomHandler) Submit(c *gin.Context) {
	code := c.MustGet("roomCode").(string)
	userID := c.MustGet("user_id").(uint)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.resultService.Submit(code, userID, req.Answers)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"score":       result.Score,
		"results_url": fmt.Sprintf("/api/rooms/%s/results", code),
	})
}

// Results возвращает ранжированную таблицу результатов.
// Первый просмотр закрывает комнату.
// GET /api/rooms/:code/results
func (h *RoomHandler) Results(c *gin.Context) {
	code := c.MustGet("roomCode").(string)

	quiz, results, err := h.resultService.ResultsView(code)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewResultsResponse(quiz, results))
}

// ResultsData — компактные записи для опроса таблицы результатов
// GET /api/rooms/:code/results/data
func (h *RoomHandler) ResultsData(c *gin.Context) {
	code := c.MustGet("roomCode").(string)

	records, err := h.resultService.ResultsData(code)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

// ExportResults экспортирует результаты комнаты в CSV или Excel формате
// GET /api/rooms/:code/results/export?format=csv|xlsx
func (h *RoomHandler) ExportResults(c *gin.Context) {
	code := c.MustGet("roomCode").(string)
	format := c.DefaultQuery("format", "csv")

	quiz, results, err := h.resultService.ResultsView(code)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	filename := fmt.Sprintf("room_%s_results_%s", quiz.RoomCode, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, results, filename)
	default:
		h.exportCSV(c, results, filename)
	}
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func (h *RoomHandler) exportCSV(c *gin.Context, results []entity.QuizResult, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Место", "Участник", "Очки", "Время (сек)"})

	for _, r := range results {
		name := ""
		if r.Participant != nil {
			name = r.Participant.Name
		}
		timeTaken := ""
		if r.TimeTakenMs != nil {
			timeTaken = strconv.FormatFloat(float64(*r.TimeTakenMs)/1000, 'f', 1, 64)
		}
		writer.Write([]string{
			strconv.Itoa(r.Rank),
			sanitizeForExcel(name),
			strconv.Itoa(r.Score),
			timeTaken,
		})
	}
}

// exportXLSX экспортирует результаты в Excel с использованием StreamWriter
func (h *RoomHandler) exportXLSX(c *gin.Context, results []entity.QuizResult, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[RoomHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Место", "Участник", "Очки", "Время (сек)"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[RoomHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range results {
		rowNum := i + 2 // первая строка занята заголовками
		cell := fmt.Sprintf("A%d", rowNum)

		name := ""
		if r.Participant != nil {
			name = r.Participant.Name
		}
		var timeTaken interface{}
		if r.TimeTakenMs != nil {
			timeTaken = float64(*r.TimeTakenMs) / 1000
		} else {
			timeTaken = ""
		}

		row := []interface{}{r.Rank, sanitizeForExcel(name), r.Score, timeTaken}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[RoomHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[RoomHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[RoomHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// participantName выбирает отображаемое имя для авто-присоединения
func (h *RoomHandler) participantName(c *gin.Context, userID uint) string {
	if user, err := h.authService.GetUser(userID); err == nil {
		return user.Username
	}
	if email, ok := c.Get("email"); ok {
		if s, ok := email.(string); ok {
			return s
		}
	}
	return fmt.Sprintf("user-%d", userID)
}

// handleRoomError преобразует ошибки комнат в HTTP-ответы.
// Конфликты состояния получают подсказку-редирект.
func (h *RoomHandler) handleRoomError(c *gin.Context, err error) {
	code, _ := c.Get("roomCode")
	lobbyURL := ""
	if s, ok := code.(string); ok {
		lobbyURL = fmt.Sprintf("/api/rooms/%s", s)
	}

	switch {
	case errors.Is(err, service.ErrRoomAborted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "redirect": lobbyURL})
	case errors.Is(err, service.ErrAlreadyStarted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "redirect": lobbyURL})
	case errors.Is(err, service.ErrRoomInactive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotInRoom), errors.Is(err, service.ErrNotJoined):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "redirect": lobbyURL})
	case errors.Is(err, service.ErrNoValidQuestions):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrRoomCodeExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in RoomHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
