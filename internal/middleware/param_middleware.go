package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/study-assistant-api/internal/domain/entity"
)

var roomCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ExtractRoomCode создает middleware для извлечения и валидации кода комнаты
// из параметра URL. Код — ровно шесть цифр; все остальное отклоняется до
// обращения к хранилищу.
func ExtractRoomCode(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param(paramName)
		if len(code) != entity.RoomCodeLength || !roomCodePattern.MatchString(code) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room code"})
			c.Abort()
			return
		}
		c.Set(contextKey, code)
		c.Next()
	}
}
