package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
)

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDocumentHandler_Upload(t *testing.T) {
	docs := new(mockDocuments)
	ref := newSessionRef()
	r := newTestRouter(ref)
	r.POST("/documents/:kind", NewDocumentHandler(docs, 1<<20).Upload)

	content := []byte("%PDF-1.4 test")
	var uploaded []byte
	docs.On("Upload", mock.Anything, ref.UserID, models.DocumentKindCV, "cv.pdf", mock.Anything).
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(4).(io.Reader))
		}).
		Return(&models.Document{ID: uuid.New(), Kind: models.DocumentKindCV, OriginalName: "cv.pdf", MimeType: "application/pdf"}, nil)

	body, contentType := multipartFile(t, "file", "cv.pdf", content)
	req := httptest.NewRequest(http.MethodPost, "/documents/cv", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, content, uploaded)
	assert.Contains(t, w.Body.String(), `"name":"cv.pdf"`)
}

func TestDocumentHandler_UploadRejectsUnknownKind(t *testing.T) {
	ref := newSessionRef()
	r := newTestRouter(ref)
	r.POST("/documents/:kind", NewDocumentHandler(new(mockDocuments), 1<<20).Upload)

	body, contentType := multipartFile(t, "file", "photo.png", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/documents/photo", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_UploadWithoutFile(t *testing.T) {
	ref := newSessionRef()
	r := newTestRouter(ref)
	r.POST("/documents/:kind", NewDocumentHandler(new(mockDocuments), 1<<20).Upload)

	body, contentType := multipartFile(t, "other", "cv.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/documents/cv", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Download(t *testing.T) {
	docs := new(mockDocuments)
	ref := newSessionRef()
	r := newTestRouter(ref)
	r.GET("/documents/:kind", NewDocumentHandler(docs, 0).Download)

	doc := &models.Document{Kind: models.DocumentKindCV, OriginalName: "cv.pdf", MimeType: "application/pdf", FileSize: 4}
	docs.On("Open", mock.Anything, ref.UserID, models.DocumentKindCV).
		Return(doc, io.NopCloser(strings.NewReader("%PDF")), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/cv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=cv.pdf", w.Header().Get("Content-Disposition"))
}

func TestDocumentHandler_DeleteMissing(t *testing.T) {
	docs := new(mockDocuments)
	ref := newSessionRef()
	r := newTestRouter(ref)
	r.DELETE("/documents/:kind", NewDocumentHandler(docs, 0).Delete)

	docs.On("Delete", mock.Anything, ref.UserID, models.DocumentKindCoverLetter).Return(apperror.ErrDocumentNotFound)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/documents/cover_letter", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_ListEmpty(t *testing.T) {
	docs := new(mockDocuments)
	ref := newSessionRef()
	r := newTestRouter(ref)
	r.GET("/documents", NewDocumentHandler(docs, 0).List)

	docs.On("List", mock.Anything, ref.UserID).Return(nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":[]}`, w.Body.String())
}
