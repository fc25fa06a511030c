package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "evidapi"

// ErrInvalidToken indicates the bearer token failed validation for any
// reason (bad signature, expiry, malformed claims). Callers get a single
// uniform error so responses do not leak which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Actor is an authenticated caller: a person holding one of the custodial
// roles. Every core operation receives the acting Actor explicitly; the
// core never reads ambient session state.
type Actor struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	Name       string `json:"full_name"`
	Department string `json:"department,omitempty"`
}

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 access token for the actor.
func GenerateToken(actor *Actor, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if actor == nil || strings.TrimSpace(actor.ID) == "" {
		return "", time.Time{}, errors.New("actor is required")
	}
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("auth secret is not configured")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("ttl must be greater than zero")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Username: actor.Username,
		Role:     string(actor.Role),
		FullName: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies the token signature and claims and reconstructs the
// Actor it was issued to.
func ParseToken(token string, secret []byte) (*Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	if len(secret) == 0 {
		return nil, errors.New("auth secret is not configured")
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Actor{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     role,
		Name:     claims.FullName,
	}, nil
}
