package francetravail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenExpiryMargin — запас, после которого токен считается просроченным.
const tokenExpiryMargin = 30 * time.Second

// AccessToken — bearer токен France Travail.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	Scope       string    `json:"scope"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid сообщает, можно ли ещё использовать токен.
func (t *AccessToken) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-tokenExpiryMargin))
}

// TokenStore хранит токены по scope. Get возвращает nil, nil если токена нет.
type TokenStore interface {
	Get(ctx context.Context, scope string) (*AccessToken, error)
	Set(ctx context.Context, scope string, token *AccessToken) error
	Delete(ctx context.Context, scope string) error
}

// MemoryTokenStore держит токены в памяти процесса.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*AccessToken
}

// NewMemoryTokenStore создаёт пустое хранилище.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*AccessToken)}
}

func (s *MemoryTokenStore) Get(_ context.Context, scope string) (*AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[scope]
	if !ok {
		return nil, nil
	}
	cp := *tok
	return &cp, nil
}

func (s *MemoryTokenStore) Set(_ context.Context, scope string, token *AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.tokens[scope] = &cp
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, scope)
	return nil
}

// RedisTokenStore разделяет токен между несколькими инстансами API.
type RedisTokenStore struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisTokenStore создаёт хранилище с префиксом ключей francetravail:token:.
func NewRedisTokenStore(rdb redis.Cmdable) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, prefix: "francetravail:token:", now: time.Now}
}

func (s *RedisTokenStore) key(scope string) string {
	return s.prefix + scope
}

func (s *RedisTokenStore) Get(ctx context.Context, scope string) (*AccessToken, error) {
	raw, err := s.rdb.Get(ctx, s.key(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("francetravail: redis get token %w", err)
	}

	var tok AccessToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("francetravail: decode cached token %w", err)
	}
	return &tok, nil
}

func (s *RedisTokenStore) Set(ctx context.Context, scope string, token *AccessToken) error {
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("francetravail: encode token %w", err)
	}

	if err := s.rdb.Set(ctx, s.key(scope), raw, ttl).Err(); err != nil {
		return fmt.Errorf("francetravail: redis set token %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, scope string) error {
	if err := s.rdb.Del(ctx, s.key(scope)).Err(); err != nil {
		return fmt.Errorf("francetravail: redis delete token %w", err)
	}
	return nil
}
