package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// TokenStore keeps bearer tokens in Redis until they expire.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewTokenStore constructs a TokenStore issuing tokens valid for ttl.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenStore{client: client, ttl: ttl, prefix: "auth:token:"}
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

// Issue stores p under a fresh random token.
func (s *TokenStore) Issue(ctx context.Context, p Principal) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	token := id.String()
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve returns the principal for token. Unknown or expired tokens yield
// ErrUnauthorized.
func (s *TokenStore) Resolve(ctx context.Context, token string) (Principal, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Principal{}, httpx.ErrUnauthorized
	}
	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Principal{}, httpx.ErrUnauthorized
		}
		return Principal{}, fmt.Errorf("auth: load token: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(payload, &p); err != nil {
		return Principal{}, fmt.Errorf("auth: decode token: %w", err)
	}
	return p, nil
}

// Revoke deletes token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

func (s *TokenStore) key(token string) string {
	return s.prefix + token
}
