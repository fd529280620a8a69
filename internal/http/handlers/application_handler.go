package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobautomate-backend/internal/dto"
	"github.com/ignatzorin/jobautomate-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
)

// ApplicationAPI — отклики пользователя.
type ApplicationAPI interface {
	Apply(ctx context.Context, userID uuid.UUID, in service.ApplyInput) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	Stats(ctx context.Context, userID uuid.UUID) (models.ApplicationStats, error)
}

// ApplicationHandler обслуживает отправку и историю откликов.
type ApplicationHandler struct {
	applications ApplicationAPI
}

// NewApplicationHandler создаёт хэндлер.
func NewApplicationHandler(applications ApplicationAPI) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Apply обрабатывает POST /applications.
// Отклик сохраняется и при ошибке France Travail, тогда вместе с ним возвращается 502/503.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.ApplyRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	app, err := h.applications.Apply(c.Request.Context(), userID, service.ApplyInput{
		OfferID:     req.OfferID,
		CoverLetter: req.CoverLetter,
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok && app != nil {
			c.JSON(appErr.HTTPStatus, gin.H{
				"error":       appErr.Message,
				"code":        appErr.Code,
				"application": app,
			})
			return
		}
		common.RespondAppError(c, err)
		return
	}

	status := http.StatusCreated
	if app.Status == models.ApplicationStatusPending {
		status = http.StatusAccepted
	}
	c.JSON(status, app)
}

// List обрабатывает GET /applications.
func (h *ApplicationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	filter := models.ApplicationFilter{
		UserID:       userID,
		MatchLevel:   models.MatchLevel(c.Query("match")),
		ContractType: c.Query("contractType"),
		Location:     c.Query("location"),
		Status:       c.Query("status"),
		Limit:        limit,
		Offset:       offset,
	}

	apps, err := h.applications.List(c.Request.Context(), filter)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: apps, Limit: limit, Offset: offset})
}

// Stats обрабатывает GET /applications/stats.
func (h *ApplicationHandler) Stats(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	stats, err := h.applications.Stats(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
