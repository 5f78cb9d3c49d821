package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/users"
)

// DefaultIssuer is used when no issuer is configured
const DefaultIssuer = "prodhub"

// Claims are the JWT claims carried by access tokens
type Claims struct {
	Email              string `json:"email"`
	UserID             int64  `json:"userId"`
	OrganizationID     *int64 `json:"orgId"`
	IsSuperadmin       bool   `json:"isSuperadmin"`
	IsGlobalSuperadmin bool   `json:"isGlobalSuperadmin"`
	jwt.RegisteredClaims
}

// Token is a signed access token
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// TTL returns the lifetime of issued tokens
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the user
func (m *TokenManager) Issue(u *users.User) (*Token, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	id := uuid.NewString()

	claims := Claims{
		Email:              u.Email,
		UserID:             u.ID,
		OrganizationID:     u.OrganizationID,
		IsSuperadmin:       u.IsSuperadmin,
		IsGlobalSuperadmin: u.IsGlobalSuperadmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        id,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{Value: signed, ID: id, ExpiresAt: expiresAt}, nil
}

// Verify parses the token and checks its signature, issuer and expiry
func (m *TokenManager) Verify(value string) (*Claims, error) {
	if value == "" {
		return nil, apperrors.Unauthorized("Missing credentials")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(value, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, apperrors.Unauthorized("Token has expired")
	}
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid token")
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, apperrors.Unauthorized("Invalid token")
	}
	return claims, nil
}
