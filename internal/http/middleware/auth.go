package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobautomate-backend/internal/dto"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey    = "userID"
	ContextSessionIDKey = "sessionID"
)

// SessionChecker проверяет, что сессия не была закрыта.
type SessionChecker interface {
	SessionExists(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// StageResolver возвращает текущий этап онбординга сессии.
type StageResolver interface {
	CurrentStage(ctx context.Context, ref service.SessionRef) (onboarding.Stage, error)
}

// AuthMiddleware проверяет JWT access токен и наличие сессии.
// sessions может быть nil, тогда проверяется только подпись.
func AuthMiddleware(tokens *service.TokenManager, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "требуется авторизация"})
			return
		}

		ref, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || ref.UserID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "токен невалиден"})
			return
		}

		if sessions != nil {
			exists, err := sessions.SessionExists(c.Request.Context(), ref.SessionID)
			if err != nil {
				logger.WithComponent("auth_middleware").WithError(err).Error("не удалось проверить сессию")
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "внутренняя ошибка сервера"})
				return
			}
			if !exists {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "сессия завершена"})
				return
			}
		}

		c.Set(ContextUserIDKey, ref.UserID)
		c.Set(ContextSessionIDKey, ref.SessionID)
		c.Next()
	}
}

// RequireStage пропускает запрос, только если сессия дошла до этапа stage.
// Используется после AuthMiddleware.
func RequireStage(stages StageResolver, stage onboarding.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(ContextUserIDKey)
		sessionID, _ := c.Get(ContextSessionIDKey)
		uid, ok1 := userID.(uuid.UUID)
		sid, ok2 := sessionID.(uuid.UUID)
		if !ok1 || !ok2 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "требуется авторизация"})
			return
		}

		current, err := stages.CurrentStage(c.Request.Context(), service.SessionRef{UserID: uid, SessionID: sid})
		if err != nil {
			AbortWithAppError(c, err)
			return
		}
		if stageRank(current) < stageRank(stage) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Error: "этап онбординга не пройден: " + string(stage),
				Code:  "ONBOARDING_INCOMPLETE",
			})
			return
		}
		c.Next()
	}
}

func stageRank(s onboarding.Stage) int {
	switch s {
	case onboarding.StageCriteria:
		return 1
	case onboarding.StageDashboard:
		return 2
	}
	return 0
}
