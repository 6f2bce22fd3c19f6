package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rwa-auth/internal/domain"
	"rwa-auth/internal/jwtsigner"
	"rwa-auth/internal/observability/metrics"
	"rwa-auth/internal/observability/middleware"
)

// SessionTTL is the lifetime of a session token.
const SessionTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type TokenServiceImpl struct {
	signer *jwtsigner.Signer
	ttl    time.Duration
}

func NewTokenServiceImpl(signer *jwtsigner.Signer) *TokenServiceImpl {
	return &TokenServiceImpl{signer: signer, ttl: SessionTTL}
}

// Issue signs a session token carrying the user's id, address and role.
func (t *TokenServiceImpl) Issue(ctx context.Context, user *domain.User) (string, time.Time, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues(result).Inc()
	}()

	token, exp, err := t.signer.Sign(jwtsigner.SessionClaims{
		UserID:  user.ID.String(),
		Address: user.WalletAddress,
		Role:    user.Role,
	}, t.ttl)
	if err != nil {
		result = "failure"
		return "", time.Time{}, err
	}

	slog.Info("issued session token",
		"user_id", user.ID,
		"alg", t.signer.Algorithm(),
		"expires_at", exp,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return token, exp, nil
}

func (t *TokenServiceImpl) Verify(_ context.Context, token string) (*jwtsigner.SessionClaims, error) {
	claims, err := t.signer.Parse(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}
