package service

import (
	"errors"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
)

// upstreamError переводит ошибку France Travail в AppError:
// временные сбои дают 503, остальные 502. Прочие ошибки возвращаются как есть.
func upstreamError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	if errors.Is(err, francetravail.ErrEmptyOfferID) {
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "идентификатор оффера обязателен")
	}

	if !isJobBoardError(err) {
		return err
	}

	if francetravail.IsTemporary(err) {
		return apperror.Wrap(err, apperror.ErrCodeUnavailable, "France Travail временно недоступен")
	}
	return apperror.Wrap(err, apperror.ErrCodeUpstream, "France Travail отклонил запрос")
}

func isJobBoardError(err error) bool {
	var (
		authErr   *francetravail.AuthError
		searchErr *francetravail.SearchError
		fetchErr  *francetravail.FetchError
		submitErr *francetravail.SubmissionError
	)
	return errors.As(err, &authErr) || errors.As(err, &searchErr) ||
		errors.As(err, &fetchErr) || errors.As(err, &submitErr)
}
