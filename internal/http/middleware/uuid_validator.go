package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметры с указанными именами являются валидными UUID.
// Использование: router.POST("/shifts/:id/applications/:workerId/approve", UUIDValidator("id", "workerId"), handler.Approve)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range paramNames {
			idStr := c.Param(name)
			if idStr == "" {
				AbortWithError(c, apperror.Newf(apperror.ErrCodeBadRequest, "параметр %s обязателен", name))
				return
			}

			if _, err := uuid.Parse(idStr); err != nil {
				AbortWithError(c, apperror.Newf(apperror.ErrCodeBadRequest, "параметр %s должен быть валидным UUID", name))
				return
			}
		}

		c.Next()
	}
}
