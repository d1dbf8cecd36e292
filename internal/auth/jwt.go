package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prefvista/fiscal-api/internal/config"
	"github.com/prefvista/fiscal-api/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the JWT claims carried in locally issued access tokens
type Claims struct {
	DisplayName string          `json:"name"`
	Email       string          `json:"email"`
	Role        domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and validates HMAC-signed access tokens for portal users
type TokenIssuer struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

// NewTokenIssuer creates a token issuer from the auth configuration
func NewTokenIssuer(cfg *config.AuthConfig) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is not configured")
	}
	return &TokenIssuer{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		tokenTTL: cfg.TokenTTLDuration(),
	}, nil
}

// Issue creates a signed access token for the user and returns the token
// string with its expiry time.
func (t *TokenIssuer) Issue(user *domain.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(t.tokenTTL)

	claims := Claims{
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate parses and verifies a token string and returns the user context
func (t *TokenIssuer) Validate(tokenString string) (*UserContext, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}

	return &UserContext{
		UserID:      userID,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
		Role:        claims.Role,
	}, nil
}
