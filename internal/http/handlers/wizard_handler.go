package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/jobautomate-backend/internal/dto"
	"github.com/ignatzorin/jobautomate-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// WizardAPI — операции мастера критериев.
type WizardAPI interface {
	Start(ctx context.Context, ref service.SessionRef) (wizard.Snapshot, error)
	Get(ref service.SessionRef) (wizard.Snapshot, error)
	Update(ref service.SessionRef, patch wizard.Patch) (wizard.Snapshot, error)
	AddKeyword(ref service.SessionRef, keyword string) (wizard.Snapshot, error)
	RemoveKeyword(ref service.SessionRef, keyword string) (wizard.Snapshot, error)
	Next(ctx context.Context, ref service.SessionRef) (*service.WizardResult, error)
	Back(ref service.SessionRef) (wizard.Snapshot, error)
	Discard(ref service.SessionRef)
}

// WizardHandler обслуживает пошаговый мастер критериев.
type WizardHandler struct {
	wizards WizardAPI
}

// NewWizardHandler создаёт хэндлер.
func NewWizardHandler(wizards WizardAPI) *WizardHandler {
	return &WizardHandler{wizards: wizards}
}

// Start обрабатывает POST /wizard.
func (h *WizardHandler) Start(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}
	snapshot, err := h.wizards.Start(c.Request.Context(), ref)
	h.respond(c, snapshot, err)
}

// Get обрабатывает GET /wizard.
func (h *WizardHandler) Get(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}
	snapshot, err := h.wizards.Get(ref)
	h.respond(c, snapshot, err)
}

// Update обрабатывает PATCH /wizard.
func (h *WizardHandler) Update(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}

	var patch wizard.Patch
	if err := common.BindAndValidate(c, &patch); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	snapshot, err := h.wizards.Update(ref, patch)
	h.respond(c, snapshot, err)
}

// AddKeyword обрабатывает POST /wizard/keywords.
func (h *WizardHandler) AddKeyword(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.KeywordRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	snapshot, err := h.wizards.AddKeyword(ref, req.Keyword)
	h.respond(c, snapshot, err)
}

// RemoveKeyword обрабатывает DELETE /wizard/keywords/:keyword.
func (h *WizardHandler) RemoveKeyword(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}
	snapshot, err := h.wizards.RemoveKeyword(ref, c.Param("keyword"))
	h.respond(c, snapshot, err)
}

// Next обрабатывает POST /wizard/next.
func (h *WizardHandler) Next(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}

	result, err := h.wizards.Next(c.Request.Context(), ref)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Back обрабатывает POST /wizard/back.
func (h *WizardHandler) Back(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}
	snapshot, err := h.wizards.Back(ref)
	h.respond(c, snapshot, err)
}

// Discard обрабатывает DELETE /wizard.
func (h *WizardHandler) Discard(c *gin.Context) {
	ref, ok := h.session(c)
	if !ok {
		return
	}
	h.wizards.Discard(ref)
	c.Status(http.StatusNoContent)
}

func (h *WizardHandler) session(c *gin.Context) (service.SessionRef, bool) {
	ref, err := common.CurrentSession(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return service.SessionRef{}, false
	}
	return ref, true
}

func (h *WizardHandler) respond(c *gin.Context, snapshot wizard.Snapshot, err error) {
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
