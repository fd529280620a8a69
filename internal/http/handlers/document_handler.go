package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobautomate-backend/internal/dto"
	"github.com/ignatzorin/jobautomate-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
)

// DocumentAPI — загрузка и выдача CV и мотивационных писем.
type DocumentAPI interface {
	Upload(ctx context.Context, userID uuid.UUID, kind models.DocumentKind, filename string, r io.Reader) (*models.Document, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Document, error)
	Open(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, io.ReadCloser, error)
	Delete(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) error
}

// DocumentHandler обслуживает маршруты документов.
type DocumentHandler struct {
	documents DocumentAPI
	maxBytes  int64
}

// NewDocumentHandler создаёт хэндлер. maxBytes ограничивает тело multipart запроса.
func NewDocumentHandler(documents DocumentAPI, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxBytes: maxBytes}
}

// Upload обрабатывает POST /documents/:kind (multipart, поле file).
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	kind, ok := documentKind(c)
	if !ok {
		return
	}

	if h.maxBytes > 0 {
		// запас на заголовки multipart
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+64<<10)
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer src.Close()

	doc, err := h.documents.Upload(c.Request.Context(), userID, kind, file.Filename, src)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// List обрабатывает GET /documents.
func (h *DocumentHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	docs, err := h.documents.List(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	c.JSON(http.StatusOK, dto.DocumentsResponse{Documents: docs})
}

// Download обрабатывает GET /documents/:kind.
func (h *DocumentHandler) Download(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	kind, ok := documentKind(c)
	if !ok {
		return
	}

	doc, rc, err := h.documents.Open(c.Request.Context(), userID, kind)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, doc.FileSize, doc.MimeType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName}),
		"X-Document-Size":     strconv.FormatInt(doc.FileSize, 10),
	})
}

// Delete обрабатывает DELETE /documents/:kind.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	kind, ok := documentKind(c)
	if !ok {
		return
	}

	if err := h.documents.Delete(c.Request.Context(), userID, kind); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func documentKind(c *gin.Context) (models.DocumentKind, bool) {
	kind := models.DocumentKind(c.Param("kind"))
	if !kind.Valid() {
		common.RespondBadRequest(c, "тип документа должен быть cv или cover_letter")
		return "", false
	}
	return kind, true
}
