package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobautomate-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
)

// SearchAPI — поиск офферов France Travail.
type SearchAPI interface {
	Search(ctx context.Context, userID uuid.UUID, overrides service.SearchOverrides) (*service.SearchResponse, error)
	GetOfferDetails(ctx context.Context, userID uuid.UUID, offerID string) (*service.OfferMatch, error)
}

// OfferHandler обслуживает поиск и просмотр офферов.
type OfferHandler struct {
	search SearchAPI
}

// NewOfferHandler создаёт хэндлер.
func NewOfferHandler(search SearchAPI) *OfferHandler {
	return &OfferHandler{search: search}
}

// Search обрабатывает GET /offers.
// Query параметры заменяют значения, выведенные из сохранённых критериев.
func (h *OfferHandler) Search(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	overrides := service.SearchOverrides{
		Keywords:     c.Query("motsCles"),
		Commune:      c.Query("commune"),
		Distance:     common.OptionalIntQuery(c, "distance"),
		ContractType: c.Query("typeContrat"),
		Experience:   c.Query("experience"),
		FullTime:     common.OptionalBoolQuery(c, "tempsPlein"),
		Page:         common.OptionalIntQuery(c, "page"),
		Range:        c.Query("range"),
	}

	result, err := h.search.Search(c.Request.Context(), userID, overrides)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Details обрабатывает GET /offers/:id.
func (h *OfferHandler) Details(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	offer, err := h.search.GetOfferDetails(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}
