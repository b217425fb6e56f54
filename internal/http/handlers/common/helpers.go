package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/dto"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/middleware"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crew-shifts-backend/internal/service"
)

// ErrInvalidUUID неверный формат идентификатора в пути.
var ErrInvalidUUID = apperror.New(apperror.ErrCodeBadRequest, "неверный формат UUID")

// CurrentUserID extracts user ID from Gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// CurrentCaller собирает участника перехода из контекста запроса.
func CurrentCaller(c *gin.Context) (service.Caller, error) {
	userID, err := CurrentUserID(c)
	if err != nil {
		return service.Caller{}, err
	}

	role := valueobject.Actor(c.GetString(middleware.ContextRoleKey))
	if !role.IsValid() {
		return service.Caller{}, apperror.ErrUnauthorized
	}

	return service.Caller{ID: userID, Role: role}, nil
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeBadRequest, "параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// BindJSON читает тело запроса; пустое тело допустимо, если allowEmpty.
func BindJSON(c *gin.Context, req any, allowEmpty bool) error {
	if allowEmpty && c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "ошибка валидации запроса: "+err.Error())
	}
	return nil
}

// RespondError отдаёт ошибку в стандартном формате.
func RespondError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// RespondData отдаёт {"data", "warnings"}.
func RespondData(c *gin.Context, statusCode int, data any, warnings []string) {
	c.JSON(statusCode, dto.NewDataResponse(data, warnings))
}

// RespondList отдаёт постраничный список.
func RespondList(c *gin.Context, items any, limit, offset int) {
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Limit: limit, Offset: offset})
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
