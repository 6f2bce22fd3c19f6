package service

import (
	"context"

	"rwa-auth/internal/domain"
	"rwa-auth/internal/dto"
)

// AuthService drives the wallet login: nonce request, then signed proof.
type AuthService interface {
	RequestNonce(ctx context.Context, r dto.NonceRequest) (*dto.NonceResponse, error)
	SubmitProof(ctx context.Context, r dto.VerifyRequest, ip, ua string) (*dto.SessionResponse, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}
