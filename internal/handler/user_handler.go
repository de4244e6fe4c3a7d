package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/study-assistant-api/internal/handler/dto"
	apperrors "github.com/yourusername/study-assistant-api/internal/pkg/errors"
	"github.com/yourusername/study-assistant-api/internal/service"
)

// UserHandler обрабатывает запросы профиля пользователя
type UserHandler struct {
	authService *service.AuthService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me возвращает профиль текущего пользователя
// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	user, err := h.authService.GetUser(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}
