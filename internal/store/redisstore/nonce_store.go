// Package redisstore keeps login nonces in Redis, one hash per address.
package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"rwa-auth/internal/domain"
	"rwa-auth/internal/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth:nonce:"

// deleteIfMatches removes the hash only when its nonce field equals ARGV[1].
var deleteIfMatches = redis.NewScript(`
if redis.call("HGET", KEYS[1], "nonce") == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type NonceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewNonceStore stores nonces without expiry when ttl is zero.
func NewNonceStore(rdb *redis.Client, ttl time.Duration) *NonceStore {
	return &NonceStore{rdb: rdb, ttl: ttl}
}

func key(address string) string { return keyPrefix + address }

func (s *NonceStore) Upsert(ctx context.Context, n *domain.Nonce) error {
	if n.IssuedAt.IsZero() {
		n.IssuedAt = time.Now().UTC()
	}
	k := key(n.Address)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, "nonce", n.Value, "issued_at", strconv.FormatInt(n.IssuedAt.UnixNano(), 10))
		if s.ttl > 0 {
			pipe.PExpire(ctx, k, s.ttl)
		}
		return nil
	})
	return err
}

func (s *NonceStore) Get(ctx context.Context, address string) (*domain.Nonce, error) {
	fields, err := s.rdb.HGetAll(ctx, key(address)).Result()
	if err != nil {
		return nil, err
	}
	value, ok := fields["nonce"]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	n := &domain.Nonce{Address: address, Value: value}
	if raw, ok := fields["issued_at"]; ok {
		ns, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.New("redisstore: corrupt issued_at")
		}
		n.IssuedAt = time.Unix(0, ns).UTC()
	}
	return n, nil
}

func (s *NonceStore) Delete(ctx context.Context, address string) (bool, error) {
	n, err := s.rdb.Del(ctx, key(address)).Result()
	return n > 0, err
}

func (s *NonceStore) DeleteIfMatches(ctx context.Context, address, value string) (bool, error) {
	n, err := deleteIfMatches.Run(ctx, s.rdb, []string{key(address)}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
