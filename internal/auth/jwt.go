// Package auth implements the identity-provider boundary. Tokens carry an
// opaque principal ID and a staff flag; everything downstream trusts that
// flag and performs no further auth logic.
package auth

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shubhayu-dev/Sanrakshan/config"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Principal is the authenticated caller as asserted by the identity provider.
type Principal struct {
	ID      string
	IsStaff bool
}

// Claims is the JWT claim set used by the service.
type Claims struct {
	PrincipalID string `json:"principal_id"`
	IsStaff     bool   `json:"is_staff"`
	jwtv5.RegisteredClaims
}

// Manager signs and verifies principal tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewManager creates a token manager from the auth configuration.
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
	}
}

// Generate issues a signed token for the given principal.
func (m *Manager) Generate(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		PrincipalID: p.ID,
		IsStaff:     p.IsStaff,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ttl)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies a token string and returns the principal it asserts.
func (m *Manager) Parse(tokenString string) (*Principal, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PrincipalID == "" {
		return nil, ErrTokenInvalid
	}

	return &Principal{ID: claims.PrincipalID, IsStaff: claims.IsStaff}, nil
}
