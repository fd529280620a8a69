package francetravail

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredentials возвращается, если client_id или client_secret не заданы.
var ErrMissingCredentials = errors.New("francetravail: не заданы учётные данные клиента")

// ErrEmptyOfferID возвращается для пустого идентификатора оффера.
var ErrEmptyOfferID = errors.New("francetravail: пустой идентификатор оффера")

// AuthError — сбой получения токена доступа.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	return describe("Échec d'authentification", e.StatusCode, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Temporary() bool { return temporary(e.StatusCode) }

// SearchError — сбой поиска офферов.
type SearchError struct {
	StatusCode int
	Err        error
}

func (e *SearchError) Error() string {
	return describe("Échec de la recherche d'emploi", e.StatusCode, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

func (e *SearchError) Temporary() bool { return temporary(e.StatusCode) }

// FetchError — сбой получения деталей оффера.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return describe("Échec de récupération des détails de l'offre", e.StatusCode, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Temporary() bool { return temporary(e.StatusCode) }

// SubmissionError — сбой отправки отклика. Повторять автоматически нельзя.
type SubmissionError struct {
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	return describe("Échec de l'envoi de candidature", e.StatusCode, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Temporary() bool { return temporary(e.StatusCode) }

// IsTemporary сообщает, имеет ли смысл повторить операцию позже.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// StatusCode возвращает HTTP статус ответа France Travail, если он известен.
func StatusCode(err error) (int, bool) {
	var (
		authErr   *AuthError
		searchErr *SearchError
		fetchErr  *FetchError
		submitErr *SubmissionError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.StatusCode, authErr.StatusCode != 0
	case errors.As(err, &searchErr):
		return searchErr.StatusCode, searchErr.StatusCode != 0
	case errors.As(err, &fetchErr):
		return fetchErr.StatusCode, fetchErr.StatusCode != 0
	case errors.As(err, &submitErr):
		return submitErr.StatusCode, submitErr.StatusCode != 0
	}
	return 0, false
}

// describe формирует сообщение: со статусом, если ответ был, иначе с причиной.
func describe(prefix string, status int, cause error) string {
	if status == 0 && cause != nil {
		return fmt.Sprintf("%s: %v", prefix, cause)
	}
	return fmt.Sprintf("%s: %d", prefix, status)
}

// temporary: сетевые сбои (статус 0), 408, 429 и 5xx.
func temporary(status int) bool {
	switch {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	}
	return false
}
