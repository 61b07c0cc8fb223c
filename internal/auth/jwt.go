// Package auth issues and validates the service tokens that protect the
// operational API surface: run triggers, gauge administration, and anything
// else that mutates state.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry is how long service tokens are valid. Tokens are issued to
// schedulers and operators, not end users, so a day keeps rotation cheap
// without forcing re-issue mid-run.
const TokenExpiry = 24 * time.Hour

// Roles a service token can carry.
const (
	// RoleOperator may trigger imputation and ingest runs.
	RoleOperator = "operator"

	// RoleAdmin may additionally manage the gauge network.
	RoleAdmin = "admin"
)

// Predefined token errors.
var (
	ErrInvalidToken     = errors.New("invalid service token")
	ErrTokenExpired     = errors.New("service token has expired")
	ErrInsufficientRole = errors.New("token role does not permit this operation")
)

// Claims represents the claims in a service token.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the token's permission level: RoleOperator or RoleAdmin.
	Role string `json:"role"`
}

// Allows reports whether the token's role covers the required role.
// Admin covers operator.
func (c *Claims) Allows(required string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.Role == required
}

// TokenService handles service token creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim for tokens (e.g., "https://api.raingauge.io").
	Issuer string

	// Audience is the audience claim for tokens (e.g., "raingauge-api").
	Audience string
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}
}

// Issue creates a new service token for the named subject with the given role.
func (s *TokenService) Issue(subject, role string) (string, time.Time, error) {
	if role != RoleOperator && role != RoleAdmin {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	expiresAt := now.Add(TokenExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing service token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate validates a service token and returns the claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
