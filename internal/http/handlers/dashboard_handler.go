package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobautomate-backend/internal/dto"
	"github.com/ignatzorin/jobautomate-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
)

// DashboardAPI — сводка дашборда и настройки автоматизации.
type DashboardAPI interface {
	Get(ctx context.Context, userID uuid.UUID) (*service.Dashboard, error)
	Automation(ctx context.Context, userID uuid.UUID) (*models.AutomationSettings, error)
	UpdateAutomation(ctx context.Context, userID uuid.UUID, in service.AutomationInput) (*models.AutomationSettings, error)
}

// DashboardHandler обслуживает дашборд.
type DashboardHandler struct {
	dashboard DashboardAPI
}

// NewDashboardHandler создаёт хэндлер.
func NewDashboardHandler(dashboard DashboardAPI) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Get обрабатывает GET /dashboard.
func (h *DashboardHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	d, err := h.dashboard.Get(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// GetAutomation обрабатывает GET /automation.
func (h *DashboardHandler) GetAutomation(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	settings, err := h.dashboard.Automation(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateAutomation обрабатывает PUT /automation.
func (h *DashboardHandler) UpdateAutomation(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.AutomationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	settings, err := h.dashboard.UpdateAutomation(c.Request.Context(), userID, service.AutomationInput{
		Enabled:               req.Enabled,
		Frequency:             req.Frequency,
		MaxApplicationsPerDay: req.MaxApplicationsPerDay,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
