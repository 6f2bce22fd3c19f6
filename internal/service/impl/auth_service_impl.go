package impl

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rwa-auth/internal/adr36"
	"rwa-auth/internal/domain"
	"rwa-auth/internal/dto"
	"rwa-auth/internal/events"
	"rwa-auth/internal/netutil"
	"rwa-auth/internal/observability/metrics"
	"rwa-auth/internal/observability/middleware"
	"rwa-auth/internal/service"
	"rwa-auth/internal/store"
	"rwa-auth/internal/walletsig"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
)

type AuthConfig struct {
	// AddressPrefixes restricts accepted bech32 prefixes. Empty accepts any.
	AddressPrefixes []string
	// BindPubKeyToAddress requires the verifying key to derive to the signer address.
	BindPubKeyToAddress bool
}

type AuthServiceImpl struct {
	Nonces    service.NonceService
	Users     userStore
	TService  service.TokenService
	Verifier  *walletsig.Verifier
	Addresses *walletsig.AddressValidator
	Events    events.Sink

	bindKey bool
}

type userStore interface {
	Create(ctx context.Context, usr *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByWalletAddress(ctx context.Context, address string) (*domain.User, error)
}

func NewAuthServiceImpl(nonces service.NonceService, users userStore, tokens service.TokenService, cfg AuthConfig) *AuthServiceImpl {
	return &AuthServiceImpl{
		Nonces:    nonces,
		Users:     users,
		TService:  tokens,
		Verifier:  walletsig.NewVerifier(),
		Addresses: walletsig.NewAddressValidator(cfg.AddressPrefixes...),
		Events:    events.LogSink{},
		bindKey:   cfg.BindPubKeyToAddress,
	}
}

// RequestNonce issues a fresh challenge for the address, replacing any unused one.
func (a *AuthServiceImpl) RequestNonce(ctx context.Context, r dto.NonceRequest) (*dto.NonceResponse, error) {
	result := "success"
	defer func() {
		metrics.NoncesIssuedTotal.WithLabelValues(result).Inc()
	}()

	address := strings.TrimSpace(r.Address)
	if address == "" {
		result = "invalid_request"
		return nil, fmt.Errorf("%w: address", domain.ErrMissingField)
	}
	if err := a.validateAddress(address); err != nil {
		result = "invalid_request"
		return nil, err
	}

	nonce, err := a.Nonces.Issue(ctx, address)
	if err != nil {
		result = "failure"
		a.logError(ctx, "issue nonce failed", address, err)
		return nil, err
	}

	a.publish(ctx, events.NonceIssued{WalletAddress: address, At: time.Now().UTC()})
	slog.Info("issued nonce", "address", address,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx))
	return &dto.NonceResponse{Nonce: nonce}, nil
}

// SubmitProof checks the signed nonce and, on success, consumes it, resolves
// (or registers) the user and returns a session token. Every rejection before
// consumption leaves the stored nonce in place.
func (a *AuthServiceImpl) SubmitProof(ctx context.Context, r dto.VerifyRequest, ip, ua string) (resp *dto.SessionResponse, err error) {
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(loginResult(err)).Inc()
	}()

	address := strings.TrimSpace(r.Address)
	nonce := strings.TrimSpace(r.Nonce)
	signature := strings.TrimSpace(r.Signature)

	// 1) shape
	if address != "" {
		if err := a.validateAddress(address); err != nil {
			return nil, err
		}
	}
	if missing := missingFields(address, nonce, signature); missing != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingField, missing)
	}

	// 2) nonce
	stored, err := a.Nonces.Peek(ctx, address)
	if err != nil {
		if !errors.Is(err, domain.ErrNonceNotFound) {
			a.logError(ctx, "load nonce failed", address, err)
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(nonce)) != 1 {
		return nil, domain.ErrNonceMismatch
	}

	// 3) decode
	hash, err := adr36.MessageHash(address, stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSignatureEncoding, err)
	}
	sig, err := walletsig.DecodeSignature(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSignatureEncoding, err)
	}
	key, err := r.PublicKey.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", domain.ErrInvalidSignatureEncoding, err)
	}

	// 4) verify
	if r.PublicKey.IsMissing() {
		slog.Debug("no public key submitted, recovering from signature", "address", address,
			"request_id", middleware.RequestIDFromContext(ctx))
	}
	res := a.verify(hash, sig, key, address)
	recordAttempts(res)
	if !res.Valid {
		slog.Warn("signature rejected", "address", address, "key_kind", r.PublicKey.Kind, "attempts", len(res.Attempts),
			"request_id", middleware.RequestIDFromContext(ctx))
		return nil, domain.ErrInvalidSignature
	}
	if a.bindKey && !walletsig.PubKeyMatchesAddress(address, res.PubKey) {
		slog.Warn("public key does not derive to address", "address", address, "strategy", res.Strategy,
			"request_id", middleware.RequestIDFromContext(ctx))
		return nil, domain.ErrInvalidSignature
	}

	// 5) consume; a concurrent login with the same nonce may have won
	consumed, err := a.Nonces.Consume(ctx, address, stored)
	if err != nil {
		a.logError(ctx, "consume nonce failed", address, err)
		return nil, err
	}
	if !consumed {
		return nil, domain.ErrNonceNotFound
	}

	// 6) user
	user, err := a.resolveUser(ctx, address)
	if err != nil {
		a.logError(ctx, "resolve user failed", address, err)
		return nil, err
	}

	// 7) session
	token, exp, err := a.TService.Issue(ctx, user)
	if err != nil {
		a.logError(ctx, "issue token failed", address, err)
		return nil, err
	}

	now := time.Now().UTC()
	a.publish(ctx, events.SessionIssued{
		UserID:        user.ID.String(),
		WalletAddress: user.WalletAddress,
		Strategy:      res.Strategy,
		ExpiresAt:     exp,
		At:            now,
	})
	slog.Info("wallet login",
		"user_id", user.ID,
		"address", address,
		"strategy", res.Strategy,
		"ip", normalizeIP(ip),
		"user_agent", netutil.TruncateUserAgent(ua),
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)

	return &dto.SessionResponse{
		Token:     token,
		ExpiresAt: exp,
		ExpiresIn: int64(exp.Sub(now).Seconds()),
		User: dto.UserResponse{
			ID:      user.ID.String(),
			Address: user.WalletAddress,
			Role:    user.Role,
		},
	}, nil
}

// CurrentUser loads the user a session token was issued to.
func (a *AuthServiceImpl) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	u, err := a.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("load user", err)
	}
	return u, nil
}

func (a *AuthServiceImpl) validateAddress(address string) error {
	if _, err := a.Addresses.Validate(address); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAddressFormat, err)
	}
	return nil
}

// verify uses the submitted key when present and falls back to recovering
// the key from the signature, accepting only keys that derive to address.
func (a *AuthServiceImpl) verify(hash []byte, sig walletsig.Signature, key []byte, address string) walletsig.Result {
	if key != nil {
		return a.Verifier.Verify(hash, sig, key)
	}
	return a.Verifier.Recover(hash, sig, func(pub *secp256k1.PublicKey) bool {
		return walletsig.PubKeyMatchesAddress(address, pub)
	})
}

// resolveUser returns the user for address, creating it on first login. When
// two first logins race, the loser of the unique index re-reads the winner.
func (a *AuthServiceImpl) resolveUser(ctx context.Context, address string) (*domain.User, error) {
	u, err := a.Users.GetByWalletAddress(ctx, address)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, persistence("load user", err)
	}

	now := time.Now().UTC()
	u = &domain.User{
		ID:            uuid.New(),
		WalletAddress: address,
		Email:         domain.SyntheticEmail(address),
		Role:          domain.RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.Users.Create(ctx, u); err != nil {
		if !store.IsUniqueViolation(err) {
			return nil, persistence("create user", err)
		}
		existing, gerr := a.Users.GetByWalletAddress(ctx, address)
		if gerr != nil {
			return nil, persistence("load user after conflict", gerr)
		}
		return existing, nil
	}

	metrics.UsersRegisteredTotal.Inc()
	a.publish(ctx, events.UserRegistered{
		UserID:        u.ID.String(),
		WalletAddress: u.WalletAddress,
		Email:         u.Email,
		At:            now,
	})
	return u, nil
}

func (a *AuthServiceImpl) publish(ctx context.Context, e events.Event) {
	if a.Events != nil {
		a.Events.Publish(ctx, e)
	}
}

func (a *AuthServiceImpl) logError(ctx context.Context, msg, address string, err error) {
	slog.Error(msg, "address", address, "err", err,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx))
}

func missingFields(address, nonce, signature string) string {
	var missing []string
	if address == "" {
		missing = append(missing, "address")
	}
	if nonce == "" {
		missing = append(missing, "nonce")
	}
	if signature == "" {
		missing = append(missing, "signature")
	}
	return strings.Join(missing, ", ")
}

func recordAttempts(res walletsig.Result) {
	for _, at := range res.Attempts {
		outcome := "failure"
		switch {
		case at.OK:
			outcome = "success"
		case at.Skipped:
			outcome = "skipped"
		}
		metrics.SignatureAttemptsTotal.WithLabelValues(at.Strategy, outcome).Inc()
	}
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidAddressFormat), errors.Is(err, domain.ErrMissingField):
		return "invalid_request"
	case errors.Is(err, domain.ErrNonceNotFound):
		return "nonce_not_found"
	case errors.Is(err, domain.ErrNonceMismatch):
		return "nonce_mismatch"
	case errors.Is(err, domain.ErrInvalidSignatureEncoding):
		return "invalid_encoding"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "failure"
	}
}

func normalizeIP(ip string) string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return normalized
	}
	return strings.TrimSpace(ip)
}
