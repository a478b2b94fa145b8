// Package auth is the admin login stub: one configured credential pair
// exchanged for a short-lived HS256 token. There is deliberately no user
// store or session model behind it.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kehila/internal/platform/config"
	"kehila/internal/platform/middleware"
	dErrors "kehila/pkg/domain-errors"
)

const issuer = "kehila"

type claims struct {
	jwt.RegisteredClaims
}

// Service issues and validates admin tokens.
type Service struct {
	adminUser     string
	adminPassword string
	signingKey    []byte
	tokenTTL      time.Duration
}

// New constructs the auth service from configuration.
func New(cfg config.Auth) *Service {
	return &Service{
		adminUser:     cfg.AdminUser,
		adminPassword: cfg.AdminPassword,
		signingKey:    []byte(cfg.JWTSigningKey),
		tokenTTL:      cfg.TokenTTL,
	}
}

// Login verifies the configured admin credentials and returns a signed token.
func (s *Service) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	if s.adminPassword == "" || !userOK || !passOK {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid credentials")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken implements middleware.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (*middleware.AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, errors.New("invalid token")
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return &middleware.AdminClaims{Subject: c.Subject}, nil
}
