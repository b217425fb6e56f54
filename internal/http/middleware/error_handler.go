package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/dto"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crew-shifts-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Маскирует внутренние ошибки и возвращает код и сообщение клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() {
			return
		}

		if len(c.Errors) > 0 {
			WriteError(c, c.Errors.Last().Err)
		}
	}
}

// AbortWithError прерывает цепочку и отдаёт ошибку в стандартном формате.
func AbortWithError(c *gin.Context, err error) {
	WriteError(c, err)
	c.Abort()
}

// WriteError пишет ответ {"error", "code"} по ошибке приложения.
func WriteError(c *gin.Context, err error) {
	resp, status := describeError(err)

	entry := logger.L().WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"status": status,
		"code":   resp.Code,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request error")
	} else {
		entry.Debug(resp.Error)
	}

	c.JSON(status, resp)
}

func describeError(err error) (dto.ErrorResponse, int) {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		resp := dto.ErrorResponse{
			Error:     appErr.Message,
			Code:      string(appErr.Code),
			Retryable: apperror.IsRetryable(appErr),
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			resp.Error = "внутренняя ошибка сервера"
		}
		return resp, appErr.HTTPStatus
	case errors.Is(err, repository.ErrNotificationNotFound):
		return dto.ErrorResponse{Error: "уведомление не найдено", Code: string(apperror.ErrCodeNotFound)}, http.StatusNotFound
	default:
		return dto.ErrorResponse{Error: "внутренняя ошибка сервера", Code: string(apperror.ErrCodeInternal)}, http.StatusInternalServerError
	}
}
