package auth

import (
	"context"
	"strings"
)

type Service struct {
	jwt *JWTManager
}

func NewService(jwtManager *JWTManager) *Service {
	return &Service{jwt: jwtManager}
}

func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (Identity, error) {
	if s == nil || s.jwt == nil {
		return Identity{}, ErrUnauthorized
	}

	claims, err := s.jwt.ParseAccessToken(strings.TrimSpace(accessToken))
	if err != nil {
		return Identity{}, err
	}

	return Identity{UserID: claims.UserID}, nil
}
