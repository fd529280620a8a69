// Package francetravail — клиент API France Travail: токены, поиск офферов,
// детали оффера и отправка откликов.
package francetravail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ignatzorin/jobautomate-backend/internal/logger"
)

const (
	DefaultAuthURL = "https://francetravail.io"
	DefaultAPIURL  = "https://api.francetravail.io"
	DefaultScope   = "o2dsoffre api_offresdemploiv2"

	tokenPath  = "/connexion/oauth2/access_token?realm=%2Fpartenaire"
	offersPath = "/partenaire/offresdemploi/v2/offres"
)

// Config содержит параметры клиента. Учётные данные передаются снаружи.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	APIURL       string
	Scope        string
	Timeout      time.Duration
}

// Client — потокобезопасный клиент France Travail с кешем токенов по scope.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     TokenStore
	group      singleflight.Group
	now        func() time.Time
	log        *logrus.Entry
}

// NewClient создаёт клиент. store == nil означает кеш в памяти.
func NewClient(cfg Config, store TokenStore) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if store == nil {
		store = NewMemoryTokenStore()
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     store,
		now:        time.Now,
		log:        logger.WithComponent("francetravail"),
	}, nil
}

// Scope возвращает scope, для которого клиент запрашивает токены.
func (c *Client) Scope() string {
	return c.cfg.Scope
}

// AcquireToken возвращает действующий токен из кеша или получает новый.
// Одновременные промахи кеша разделяют один запрос.
func (c *Client) AcquireToken(ctx context.Context) (*AccessToken, error) {
	if tok := c.cachedToken(ctx); tok != nil {
		return tok, nil
	}

	// общий обмен не зависит от отмены контекста первого вызывающего
	ch := c.group.DoChan(c.cfg.Scope, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		if tok := c.cachedToken(fetchCtx); tok != nil {
			return tok, nil
		}

		tok, err := c.requestToken(fetchCtx)
		if err != nil {
			return nil, err
		}

		if err := c.tokens.Set(fetchCtx, c.cfg.Scope, tok); err != nil {
			c.log.WithError(err).Warn("francetravail: не удалось сохранить токен в кеш")
		}
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return nil, &AuthError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*AccessToken), nil
	}
}

// InvalidateToken сбрасывает закешированный токен.
func (c *Client) InvalidateToken(ctx context.Context) {
	if err := c.tokens.Delete(ctx, c.cfg.Scope); err != nil {
		c.log.WithError(err).Warn("francetravail: не удалось сбросить токен")
	}
}

func (c *Client) cachedToken(ctx context.Context) *AccessToken {
	tok, err := c.tokens.Get(ctx, c.cfg.Scope)
	if err != nil {
		c.log.WithError(err).Warn("francetravail: кеш токенов недоступен")
		return nil
	}
	if tok.Valid(c.now()) {
		return tok
	}
	return nil
}

// requestToken выполняет обмен client_credentials.
func (c *Client) requestToken(ctx context.Context) (*AccessToken, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {c.cfg.Scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WithField("status", resp.StatusCode).Warn("francetravail: сервер авторизации отклонил запрос")
		return nil, &AuthError{StatusCode: resp.StatusCode}
	}

	var tok AccessToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode token: %w", err)}
	}
	if tok.AccessToken == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("пустой access_token")}
	}
	if tok.Scope == "" {
		tok.Scope = c.cfg.Scope
	}
	tok.ExpiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	c.log.WithFields(logrus.Fields{
		"scope":      tok.Scope,
		"expires_in": tok.ExpiresIn,
	}).Debug("francetravail: получен новый токен")

	return &tok, nil
}

// requestBuilder собирает запрос с уже известным bearer токеном.
// Вызывается повторно при обновлении токена, поэтому тело нужно создавать заново.
type requestBuilder func(ctx context.Context, bearer string) (*http.Request, error)

// doAuthorized выполняет запрос с токеном. На 401 токен сбрасывается
// и запрос повторяется один раз со свежим токеном.
func (c *Client) doAuthorized(ctx context.Context, build requestBuilder) (*http.Response, error) {
	resp, err := c.send(ctx, build)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	drainAndClose(resp)
	c.log.Debug("francetravail: 401, обновляем токен")
	c.InvalidateToken(ctx)

	return c.send(ctx, build)
}

func (c *Client) send(ctx context.Context, build requestBuilder) (*http.Response, error) {
	tok, err := c.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := build(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	return c.httpClient.Do(req)
}

func (c *Client) jsonRequest(ctx context.Context, method, endpoint, bearer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
