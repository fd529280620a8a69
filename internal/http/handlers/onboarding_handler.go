package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobautomate-backend/internal/dto"
	"github.com/ignatzorin/jobautomate-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// OnboardingAPI — операции онбординга сессии.
type OnboardingAPI interface {
	State(ctx context.Context, ref service.SessionRef) (onboarding.State, error)
	ConnectProvider(ctx context.Context, ref service.SessionRef) (onboarding.State, error)
	CompleteCriteria(ctx context.Context, ref service.SessionRef, criteria wizard.Criteria) (onboarding.State, error)
	Criteria(ctx context.Context, userID uuid.UUID) (*wizard.Criteria, error)
}

// OnboardingHandler обслуживает состояние сессии и подключение France Travail.
type OnboardingHandler struct {
	onboarding OnboardingAPI
}

// NewOnboardingHandler создаёт хэндлер.
func NewOnboardingHandler(svc OnboardingAPI) *OnboardingHandler {
	return &OnboardingHandler{onboarding: svc}
}

// Session обрабатывает GET /session.
func (h *OnboardingHandler) Session(c *gin.Context) {
	ref, err := common.CurrentSession(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	state, err := h.onboarding.State(c.Request.Context(), ref)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{Onboarding: state})
}

// ConnectProvider обрабатывает POST /onboarding/provider.
func (h *OnboardingHandler) ConnectProvider(c *gin.Context) {
	ref, err := common.CurrentSession(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	state, err := h.onboarding.ConnectProvider(c.Request.Context(), ref)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{Onboarding: state})
}

// SaveCriteria обрабатывает PUT /criteria: полный набор критериев без мастера.
func (h *OnboardingHandler) SaveCriteria(c *gin.Context) {
	ref, err := common.CurrentSession(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.CriteriaRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	state, err := h.onboarding.CompleteCriteria(c.Request.Context(), ref, req.ToCriteria())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{Onboarding: state})
}

// GetCriteria обрабатывает GET /criteria.
func (h *OnboardingHandler) GetCriteria(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	criteria, err := h.onboarding.Criteria(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if criteria == nil {
		common.RespondError(c, http.StatusNotFound, "критерии поиска не настроены")
		return
	}

	c.JSON(http.StatusOK, criteria)
}
