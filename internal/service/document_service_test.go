package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/storage"
)

func pdfBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "%PDF-1.7\n")
	return data
}

func TestDocumentService_UploadReplacesPrevious(t *testing.T) {
	files := newMemFiles()
	notifier := &recordingNotifier{}
	cache := NewCacheService()
	t.Cleanup(cache.Close)
	svc := NewDocumentService(newFakeDocumentRepo(), files, notifier, cache)
	userID := uuid.New()
	ctx := context.Background()

	cache.Set(DashboardCacheKey(userID), "stale", time.Minute)

	first, err := svc.Upload(ctx, userID, models.DocumentKindCV, "cv.pdf", bytes.NewReader(pdfBytes(10000)))
	require.NoError(t, err)
	assert.Equal(t, storage.MimePDF, first.MimeType)
	assert.Equal(t, int64(10000), first.FileSize)
	assert.Equal(t, 1, files.count())

	second, err := svc.Upload(ctx, userID, models.DocumentKindCV, "cv-2026.pdf", bytes.NewReader(pdfBytes(64)))
	require.NoError(t, err)
	assert.Equal(t, 1, files.count(), "старый файл удалён")

	doc, rc, err := svc.Open(ctx, userID, models.DocumentKindCV)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, second.FilePath, doc.FilePath)
	assert.Len(t, data, 64)

	_, found := cache.Get(DashboardCacheKey(userID))
	assert.False(t, found)

	assert.Equal(t, []string{"CV téléchargé avec succès", "CV téléchargé avec succès"}, notifier.titles())
}

func TestDocumentService_UploadRejectsUnsupported(t *testing.T) {
	files := newMemFiles()
	svc := NewDocumentService(newFakeDocumentRepo(), files, nil, nil)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Upload(ctx, userID, models.DocumentKindCV, "cv.exe", bytes.NewReader(pdfBytes(64)))
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Upload(ctx, userID, models.DocumentKindCV, "cv.pdf", bytes.NewReader([]byte("plain text, not a pdf")))
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Upload(ctx, userID, models.DocumentKindCV, "cv.pdf", bytes.NewReader(nil))
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Upload(ctx, userID, models.DocumentKind("photo"), "cv.pdf", bytes.NewReader(pdfBytes(64)))
	assert.True(t, apperror.IsValidation(err))

	assert.Zero(t, files.count())
}

func TestDocumentService_Delete(t *testing.T) {
	files := newMemFiles()
	notifier := &recordingNotifier{}
	svc := NewDocumentService(newFakeDocumentRepo(), files, notifier, nil)
	userID := uuid.New()
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, userID, models.DocumentKindCoverLetter), apperror.ErrDocumentNotFound)

	_, err := svc.Upload(ctx, userID, models.DocumentKindCoverLetter, "lettre.pdf", bytes.NewReader(pdfBytes(128)))
	require.NoError(t, err)

	docs, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, svc.Delete(ctx, userID, models.DocumentKindCoverLetter))
	assert.Zero(t, files.count())

	_, _, err = svc.Open(ctx, userID, models.DocumentKindCoverLetter)
	assert.ErrorIs(t, err, apperror.ErrDocumentNotFound)

	assert.Equal(t, []string{"Lettre de motivation téléchargée", "Lettre de motivation supprimée"}, notifier.titles())
}
