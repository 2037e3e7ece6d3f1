package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/entity"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/response"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/service"
)

// ContextActorKey ключ участника в gin.Context.
const ContextActorKey = "actor"

// AuthMiddleware проверяет JWT access токен и кладёт участника в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			response.Unauthorized(c, "требуется авторизация")
			c.Abort()
			return
		}

		actor, err := tokens.ParseAccess(raw)
		if err != nil {
			response.Unauthorized(c, "токен невалиден")
			c.Abort()
			return
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// BearerToken достаёт токен из заголовка Authorization.
func BearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// ActorFromContext возвращает участника, положенного AuthMiddleware.
func ActorFromContext(c *gin.Context) (entity.Actor, bool) {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return entity.Actor{}, false
	}
	actor, ok := value.(entity.Actor)
	return actor, ok
}
