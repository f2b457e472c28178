package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saiganesh141124/flora-intel/apperrors"
)

const tokenLifetime = 24 * time.Hour

// Service validates and issues session tokens. The token subject is the
// principal id every pipeline run and history query is scoped to.
type Service struct {
	jwtSecret []byte
}

// NewService creates a new auth service instance
func NewService(jwtSecret string) *Service {
	return &Service{jwtSecret: []byte(jwtSecret)}
}

// ValidateToken verifies a JWT and returns the principal id it was issued
// for. Any failure is reported as unauthorized.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", apperrors.Newf(apperrors.KindUnauthorized, "missing token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", apperrors.New(apperrors.KindUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperrors.Newf(apperrors.KindUnauthorized, "invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", apperrors.Newf(apperrors.KindUnauthorized, "token has no subject")
	}

	return sub, nil
}

// IssueToken creates a signed session token for a principal. The login flow
// lives outside this service; this helper exists so deployments and tests
// can mint tokens against the shared secret.
func (s *Service) IssueToken(principalID string) (string, error) {
	if principalID == "" {
		return "", errors.New("principal id is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": principalID,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
