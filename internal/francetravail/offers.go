package francetravail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// JobOffer — оффер в формате API France Travail.
type JobOffer struct {
	ID             string          `json:"id"`
	Title          string          `json:"intitule"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      string          `json:"dateCreation"`
	Workplace      Workplace       `json:"lieuTravail"`
	Company        *Company        `json:"entreprise,omitempty"`
	ContractType   string          `json:"typeContrat"`
	Salary         *Salary         `json:"salaire,omitempty"`
	Contact        json.RawMessage `json:"contact,omitempty"`
	ApplicationURL string          `json:"urlPostulation,omitempty"`
}

// Workplace — lieuTravail.
type Workplace struct {
	Label      string `json:"libelle"`
	Commune    string `json:"commune,omitempty"`
	PostalCode string `json:"codePostal,omitempty"`
}

// Company — entreprise.
type Company struct {
	Name string `json:"nom"`
}

// Salary — salaire.
type Salary struct {
	Label string `json:"libelle"`
}

// CompanyName возвращает название компании или пустую строку.
func (o JobOffer) CompanyName() string {
	if o.Company == nil {
		return ""
	}
	return o.Company.Name
}

// SearchParams — фильтры поиска. В запрос попадают только заданные поля.
type SearchParams struct {
	Keywords      string
	Commune       string
	Distance      *int
	ContractType  string
	Experience    string
	Qualification string
	FullTime      *bool
	Page          *int
	// Range — диапазон результатов в формате API, например "0-49".
	Range string
}

// Query сериализует параметры в query string.
func (p SearchParams) Query() url.Values {
	q := url.Values{}
	if p.Keywords != "" {
		q.Set("motsCles", p.Keywords)
	}
	if p.Commune != "" {
		q.Set("commune", p.Commune)
	}
	if p.Distance != nil {
		q.Set("distance", strconv.Itoa(*p.Distance))
	}
	if p.ContractType != "" {
		q.Set("typeContrat", p.ContractType)
	}
	if p.Experience != "" {
		q.Set("experience", p.Experience)
	}
	if p.Qualification != "" {
		q.Set("qualification", p.Qualification)
	}
	if p.FullTime != nil {
		q.Set("tempsPlein", strconv.FormatBool(*p.FullTime))
	}
	if p.Page != nil {
		q.Set("page", strconv.Itoa(*p.Page))
	}
	if p.Range != "" {
		q.Set("range", p.Range)
	}
	return q
}

// SearchResult — ответ поиска.
type SearchResult struct {
	Results    []JobOffer      `json:"resultats"`
	Filters    json.RawMessage `json:"filtresPossibles,omitempty"`
	ResultCode string          `json:"codeResultat,omitempty"`
	TotalCount *int            `json:"nbResultats,omitempty"`
	// Partial выставляется для ответа 206 (часть результатов).
	Partial bool `json:"partial"`
}

// SearchOffers ищет офферы. Любой 2xx, включая 206, считается успешным ответом.
func (c *Client) SearchOffers(ctx context.Context, params SearchParams) (*SearchResult, error) {
	endpoint := c.cfg.APIURL + offersPath + "/search"
	if q := params.Query().Encode(); q != "" {
		endpoint += "?" + q
	}

	resp, err := c.doAuthorized(ctx, func(ctx context.Context, bearer string) (*http.Request, error) {
		return c.jsonRequest(ctx, http.MethodGet, endpoint, bearer)
	})
	if err != nil {
		return nil, asPhaseError(err, func(e error) error { return &SearchError{Err: e} })
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SearchError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode == http.StatusNoContent {
		return &SearchResult{Results: []JobOffer{}}, nil
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && !errors.Is(err, io.EOF) {
		return nil, &SearchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode search response: %w", err)}
	}
	if result.Results == nil {
		result.Results = []JobOffer{}
	}
	result.Partial = resp.StatusCode == http.StatusPartialContent

	return &result, nil
}

// GetOfferDetails возвращает оффер по идентификатору.
func (c *Client) GetOfferDetails(ctx context.Context, offerID string) (*JobOffer, error) {
	if offerID == "" {
		return nil, &FetchError{StatusCode: http.StatusBadRequest, Err: ErrEmptyOfferID}
	}

	endpoint := c.cfg.APIURL + offersPath + "/" + url.PathEscape(offerID)
	resp, err := c.doAuthorized(ctx, func(ctx context.Context, bearer string) (*http.Request, error) {
		return c.jsonRequest(ctx, http.MethodGet, endpoint, bearer)
	})
	if err != nil {
		return nil, asPhaseError(err, func(e error) error { return &FetchError{Err: e} })
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{StatusCode: resp.StatusCode}
	}

	var offer JobOffer
	if err := json.NewDecoder(resp.Body).Decode(&offer); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode offer: %w", err)}
	}

	return &offer, nil
}

// asPhaseError оставляет AuthError как есть, остальные сбои транспорта
// оборачивает в ошибку текущей фазы.
func asPhaseError(err error, wrap func(error) error) error {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return wrap(err)
}
