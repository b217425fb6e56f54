package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// TokenParser проверяет access токен и возвращает пользователя и роль.
type TokenParser interface {
	ParseAccess(token string) (uuid.UUID, string, error)
}

// AuthMiddleware проверяет JWT access токен.
// Роль system через токен не выдаётся: её использует только планировщик.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			AbortWithError(c, apperror.ErrUnauthorized)
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		userID, role, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil {
			AbortWithError(c, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "токен невалиден"))
			return
		}

		actor := valueobject.Actor(role)
		if !actor.IsValid() || actor == valueobject.ActorSystem {
			AbortWithError(c, apperror.New(apperror.ErrCodeUnauthorized, "неизвестная роль в токене"))
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, string(actor))
		c.Next()
	}
}

// RequireRole пропускает только указанные роли. Ставится после AuthMiddleware.
func RequireRole(roles ...valueobject.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		for _, r := range roles {
			if role == string(r) {
				c.Next()
				return
			}
		}
		AbortWithError(c, apperror.ErrForbidden)
	}
}
