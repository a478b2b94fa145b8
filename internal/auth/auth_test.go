package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kehila/internal/platform/config"
	dErrors "kehila/pkg/domain-errors"
)

type AuthSuite struct {
	suite.Suite
	service *Service
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.service = New(config.Auth{
		AdminUser:     "admin",
		AdminPassword: "s3cret",
		JWTSigningKey: "test-signing-key",
		TokenTTL:      time.Hour,
	})
}

func (s *AuthSuite) TestLogin() {
	s.Run("valid credentials return a token the service accepts", func() {
		token, err := s.service.Login("admin", "s3cret")
		s.Require().NoError(err)
		s.NotEmpty(token)

		claims, err := s.service.ValidateToken(token)
		s.Require().NoError(err)
		s.Equal("admin", claims.Subject)
	})

	s.Run("wrong password is rejected", func() {
		_, err := s.service.Login("admin", "wrong")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("wrong username is rejected", func() {
		_, err := s.service.Login("root", "s3cret")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("empty configured password disables login", func() {
		svc := New(config.Auth{AdminUser: "admin", JWTSigningKey: "k", TokenTTL: time.Hour})
		_, err := svc.Login("admin", "")
		s.Error(err)
	})
}

func (s *AuthSuite) TestValidateToken() {
	s.Run("garbage token is rejected", func() {
		_, err := s.service.ValidateToken("not-a-token")
		s.Error(err)
	})

	s.Run("token signed with a different key is rejected", func() {
		other := New(config.Auth{
			AdminUser:     "admin",
			AdminPassword: "s3cret",
			JWTSigningKey: "another-key",
			TokenTTL:      time.Hour,
		})
		token, err := other.Login("admin", "s3cret")
		s.Require().NoError(err)

		_, err = s.service.ValidateToken(token)
		s.Error(err)
	})

	s.Run("expired token is rejected", func() {
		expired := New(config.Auth{
			AdminUser:     "admin",
			AdminPassword: "s3cret",
			JWTSigningKey: "test-signing-key",
			TokenTTL:      -time.Minute,
		})
		token, err := expired.Login("admin", "s3cret")
		s.Require().NoError(err)

		_, err = s.service.ValidateToken(token)
		s.ErrorContains(err, "expired")
	})
}
