package auth

import (
	"context"
	"strings"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// UserLookup loads the user named by a token
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*users.User, error)
}

// Resolver turns a bearer credential into a Principal
type Resolver struct {
	tokens      *TokenManager
	revocations *RevocationList
	users       UserLookup
}

// NewResolver creates a new Resolver. revocations may be nil.
func NewResolver(tokens *TokenManager, revocations *RevocationList, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, revocations: revocations, users: users}
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Resolve verifies the token, rejects revoked tokens and reloads the user. The principal
// reflects the stored user, not the claims.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := r.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.Unauthorized("Token has been revoked")
	}

	u, err := r.users.GetUser(ctx, claims.UserID)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.Unauthorized("User no longer exists")
	}
	if err != nil {
		return nil, err
	}

	p := NewPrincipal(u)
	p.TokenID = claims.ID
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
