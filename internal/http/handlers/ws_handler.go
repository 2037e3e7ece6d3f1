package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/middleware"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/response"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/service"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub          *ws.Hub
	tokenManager *service.TokenManager
	upgrader     websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой allowedOrigins разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &WSHandler{
		hub:          hub,
		tokenManager: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=... или с заголовком Authorization.
// Соединение только получает события заявок участника.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		rawToken, _ = middleware.BearerToken(c)
	}
	if rawToken == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}

	actor, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil {
		response.Unauthorized(c, "невалидный access токен")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам ответил клиенту.
		logger.WithFields(logrus.Fields{"user_id": actor.ID}).WithError(err).Warn("ws: upgrade не удался")
		return
	}

	ws.NewClient(conn, h.hub, actor.ID).Run(c.Request.Context())
}
