package store

import (
	"context"
	"errors"
	"time"

	"rwa-auth/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NonceStore struct{ db *gorm.DB }

func (s *Store) Nonces() *NonceStore { return &NonceStore{db: s.DB} }

// Upsert replaces any nonce already on file for n.Address.
func (ns *NonceStore) Upsert(ctx context.Context, n *domain.Nonce) error {
	if n.IssuedAt.IsZero() {
		n.IssuedAt = time.Now().UTC()
	}
	return ns.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"nonce", "issued_at"}),
	}).Create(n).Error
}

func (ns *NonceStore) Get(ctx context.Context, address string) (*domain.Nonce, error) {
	var out domain.Nonce
	if err := ns.db.WithContext(ctx).First(&out, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &out, nil
}

// Delete removes the nonce for address and reports whether one existed.
func (ns *NonceStore) Delete(ctx context.Context, address string) (bool, error) {
	tx := ns.db.WithContext(ctx).Where("address = ?", address).Delete(&domain.Nonce{})
	return tx.RowsAffected > 0, tx.Error
}

// DeleteIfMatches removes the nonce only while it still equals value. Of two
// concurrent callers holding the same value, exactly one sees true.
func (ns *NonceStore) DeleteIfMatches(ctx context.Context, address, value string) (bool, error) {
	tx := ns.db.WithContext(ctx).
		Where("address = ? AND nonce = ?", address, value).
		Delete(&domain.Nonce{})
	return tx.RowsAffected == 1, tx.Error
}
