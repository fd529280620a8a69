package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/jobautomate-backend/internal/http/middleware"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
	"github.com/ignatzorin/jobautomate-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub          *ws.Hub
	tokenManager *service.TokenManager
	sessions     middleware.SessionChecker
	upgrader     websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. sessions может быть nil.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, sessions middleware.SessionChecker, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:          hub,
		tokenManager: tokens,
		sessions:     sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access токен обязателен"})
		return
	}

	ref, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil || ref.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидный access токен"})
		return
	}

	if h.sessions != nil {
		exists, err := h.sessions.SessionExists(c.Request.Context(), ref.SessionID)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "сессия завершена"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithComponent("ws").WithError(err).Warn("не удалось установить WebSocket соединение")
		return
	}

	client := ws.NewClient(conn, h.hub, ref.UserID, ref.SessionID)
	h.hub.Register(client)

	client.Run()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
