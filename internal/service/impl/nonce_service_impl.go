package impl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"rwa-auth/internal/domain"
	"rwa-auth/internal/store"
)

// NonceBytes is the amount of randomness in a nonce; it is hex encoded on the wire.
const NonceBytes = 32

// NonceStore is implemented by store.NonceStore (gorm) and redisstore.NonceStore.
type NonceStore interface {
	Upsert(ctx context.Context, n *domain.Nonce) error
	Get(ctx context.Context, address string) (*domain.Nonce, error)
	Delete(ctx context.Context, address string) (bool, error)
	DeleteIfMatches(ctx context.Context, address, value string) (bool, error)
}

type NonceServiceImpl struct {
	store NonceStore
	ttl   time.Duration

	now    func() time.Time
	random io.Reader
}

// NewNonceServiceImpl builds the nonce service. ttl <= 0 keeps a nonce until
// it is used or replaced.
func NewNonceServiceImpl(st NonceStore, ttl time.Duration) *NonceServiceImpl {
	return &NonceServiceImpl{
		store:  st,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		random: rand.Reader,
	}
}

func (s *NonceServiceImpl) Issue(ctx context.Context, address string) (string, error) {
	buf := make([]byte, NonceBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)
	n := &domain.Nonce{Address: address, Value: value, IssuedAt: s.now()}
	if err := s.store.Upsert(ctx, n); err != nil {
		return "", persistence("store nonce", err)
	}
	return value, nil
}

func (s *NonceServiceImpl) Peek(ctx context.Context, address string) (string, error) {
	n, err := s.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", domain.ErrNonceNotFound
		}
		return "", persistence("load nonce", err)
	}
	if n.Expired(s.ttl, s.now()) {
		return "", domain.ErrNonceNotFound
	}
	return n.Value, nil
}

func (s *NonceServiceImpl) Invalidate(ctx context.Context, address string) (bool, error) {
	ok, err := s.store.Delete(ctx, address)
	if err != nil {
		return false, persistence("delete nonce", err)
	}
	return ok, nil
}

func (s *NonceServiceImpl) Consume(ctx context.Context, address, nonce string) (bool, error) {
	ok, err := s.store.DeleteIfMatches(ctx, address, nonce)
	if err != nil {
		return false, persistence("consume nonce", err)
	}
	return ok, nil
}
