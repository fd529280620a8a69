package francetravail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// IdempotencyHeader передаёт ключ идемпотентности отклика.
const IdempotencyHeader = "Idempotency-Key"

// Attachment — файл, прикладываемый к отклику.
type Attachment struct {
	FileName string
	Content  io.Reader
}

// ApplicationParams — данные отклика на оффер.
type ApplicationParams struct {
	OfferID     string
	CandidateID string
	CV          *Attachment
	CoverLetter string
	// IdempotencyKey генерируется автоматически, если не задан.
	IdempotencyKey string
}

// ApplicationResult — ответ API на отклик.
type ApplicationResult struct {
	StatusCode     int             `json:"status_code"`
	IdempotencyKey string          `json:"idempotency_key"`
	Body           json.RawMessage `json:"body,omitempty"`
}

// SubmitApplication отправляет отклик multipart запросом.
// Повтор выполняется только после 401, с тем же ключом идемпотентности.
func (c *Client) SubmitApplication(ctx context.Context, params ApplicationParams) (*ApplicationResult, error) {
	if params.OfferID == "" {
		return nil, &SubmissionError{StatusCode: http.StatusBadRequest, Err: ErrEmptyOfferID}
	}
	if params.IdempotencyKey == "" {
		params.IdempotencyKey = uuid.NewString()
	}

	payload, contentType, err := encodeApplication(params)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}

	endpoint := c.cfg.APIURL + offersPath + "/" + url.PathEscape(params.OfferID) + "/candidatures"
	resp, err := c.doAuthorized(ctx, func(ctx context.Context, bearer string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		req.Header.Set(IdempotencyHeader, params.IdempotencyKey)
		return req, nil
	})
	if err != nil {
		return nil, asPhaseError(err, func(e error) error { return &SubmissionError{Err: e} })
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SubmissionError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	result := &ApplicationResult{
		StatusCode:     resp.StatusCode,
		IdempotencyKey: params.IdempotencyKey,
	}
	if len(bytes.TrimSpace(body)) > 0 && json.Valid(body) {
		result.Body = body
	}

	return result, nil
}

// encodeApplication собирает multipart тело один раз, чтобы его можно было переотправить.
func encodeApplication(params ApplicationParams) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("candidateId", params.CandidateID); err != nil {
		return nil, "", fmt.Errorf("write candidateId: %w", err)
	}

	if params.CV != nil && params.CV.Content != nil {
		name := params.CV.FileName
		if name == "" {
			name = "cv"
		}
		part, err := w.CreateFormFile("cv", name)
		if err != nil {
			return nil, "", fmt.Errorf("create cv part: %w", err)
		}
		if _, err := io.Copy(part, params.CV.Content); err != nil {
			return nil, "", fmt.Errorf("copy cv: %w", err)
		}
	}

	if params.CoverLetter != "" {
		if err := w.WriteField("coverLetter", params.CoverLetter); err != nil {
			return nil, "", fmt.Errorf("write coverLetter: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
