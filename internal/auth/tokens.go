// Package auth issues and checks the bearer tokens that guard the admin API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims are the JWT claims carried by admin tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// TokenPair is returned by login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Issuer signs and parses HMAC tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

const issuerName = "clinic-scheduler"

// NewIssuer creates a token issuer. An empty secret yields an issuer that
// refuses to sign or accept anything.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Enabled reports whether a signing secret is configured.
func (i *Issuer) Enabled() bool {
	return len(i.secret) > 0
}

// Sign creates a token of kind for the admin identified by email.
func (i *Issuer) Sign(kind TokenType, email, name string) (string, *Claims, error) {
	if !i.Enabled() {
		return "", nil, ErrAuthDisabled
	}
	ttl := i.accessTTL
	if kind == TokenRefresh {
		ttl = i.refreshTTL
	}
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     email,
		Name:      name,
		TokenType: kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates signature, issuer and expiry. When want is non-empty the
// token must also be of that type.
func (i *Issuer) Parse(tokenString string, want TokenType) (*Claims, error) {
	if !i.Enabled() {
		return nil, ErrAuthDisabled
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if want != "" && claims.TokenType != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
