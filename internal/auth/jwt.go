// Package auth issues and verifies the signed tokens that carry a user's
// identity and role between requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dentalbudget/internal/core"
)

var (
	// ErrTokenInvalid is returned when a token fails signature or claims checks.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token is expired")
)

const issuer = "dentalbudget"

// Claims captures the validated identity carried by a token.
type Claims struct {
	UserID     int64
	Email      string
	Role       core.Role
	PracticeID *int64
}

// tokenClaims is the internal claims type used for JWT signing and parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID     int64      `json:"user_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	PracticeID *int64     `json:"practice_id,omitempty"`
}

// TokenManager signs and verifies HMAC tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager with the given signing secret and
// token lifetime. now may be nil, in which case time.Now is used.
func NewTokenManager(secret string, ttl time.Duration, now func() time.Time) *TokenManager {
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

// Issue signs a new token for the given user.
func (tm *TokenManager) Issue(user core.User) (string, error) {
	issuedAt := tm.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(tm.ttl)),
		},
		UserID:     user.ID,
		Email:      user.Email,
		Role:       string(user.Role),
		PracticeID: user.PracticeID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (tm *TokenManager) Verify(tokenString string) (Claims, error) {
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	role := core.Role(parsed.Role)
	if !role.Valid() {
		return Claims{}, ErrTokenInvalid
	}
	if parsed.UserID <= 0 || parsed.Email == "" {
		return Claims{}, ErrTokenInvalid
	}

	return Claims{
		UserID:     parsed.UserID,
		Email:      parsed.Email,
		Role:       role,
		PracticeID: parsed.PracticeID,
	}, nil
}

// mapJWTError translates jwt library errors to auth errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}
