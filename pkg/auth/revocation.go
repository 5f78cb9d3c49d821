package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedKeyPrefix = "prodhub:revoked:"

// RevocationList records token ids revoked at logout until they would have expired.
// A list without a Redis client never revokes anything.
type RevocationList struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRevocationList creates a new RevocationList. client may be nil.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{redis: client, now: time.Now}
}

// Enabled reports whether revocations are stored
func (l *RevocationList) Enabled() bool {
	return l != nil && l.redis != nil
}

// Revoke marks the token id revoked until expiresAt
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if !l.Enabled() {
		return nil
	}
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.redis.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id was revoked
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !l.Enabled() {
		return false, nil
	}
	n, err := l.redis.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
