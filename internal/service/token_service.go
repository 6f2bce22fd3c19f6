package service

import (
	"context"
	"time"

	"rwa-auth/internal/domain"
	"rwa-auth/internal/jwtsigner"
)

type TokenService interface {
	Issue(ctx context.Context, user *domain.User) (token string, expiresAt time.Time, err error)
	Verify(ctx context.Context, token string) (*jwtsigner.SessionClaims, error)
}
