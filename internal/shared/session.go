package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates the presented token resolves to no session.
var ErrSessionNotFound = errors.New("session not found")

// SessionManager issues and resolves bearer-token sessions backed by Redis.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
}

type sessionPayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, ttl: ttl}
}

// Issue creates a session for the operator and returns the bearer token.
func (sm *SessionManager) Issue(ctx context.Context, op Operator) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(sessionPayload{UserID: op.UserID, Username: op.Username})
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.redisKey(token), payload, sm.ttl).Err(); err != nil {
		return "", fmt.Errorf("shared: store session: %w", err)
	}
	return token, nil
}

// Resolve maps a bearer token back to the operator it was issued for. The
// session TTL is refreshed on each successful resolve.
func (sm *SessionManager) Resolve(ctx context.Context, token string) (Operator, error) {
	if token == "" {
		return Operator{}, ErrSessionNotFound
	}
	raw, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Operator{}, ErrSessionNotFound
		}
		return Operator{}, fmt.Errorf("shared: load session: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Operator{}, err
	}
	_ = sm.client.Expire(ctx, sm.redisKey(token), sm.ttl).Err()
	return Operator{UserID: stored.UserID, Username: stored.Username}, nil
}

// Revoke deletes a session, ending the login.
func (sm *SessionManager) Revoke(ctx context.Context, token string) error {
	return sm.client.Del(ctx, sm.redisKey(token)).Err()
}

func (sm *SessionManager) redisKey(token string) string {
	return "pawnledger:session:" + token
}
