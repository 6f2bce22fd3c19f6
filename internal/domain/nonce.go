package domain

import "time"

// Nonce is the single live login challenge for a wallet address.
type Nonce struct {
	Address  string    `gorm:"type:text;primaryKey" db:"address"`
	Value    string    `gorm:"column:nonce;type:text;not null" db:"nonce"`
	IssuedAt time.Time `gorm:"not null" db:"issued_at"`
}

func (Nonce) TableName() string { return "auth_nonces" }

// Expired reports whether the nonce is older than ttl. A zero ttl never expires.
func (n *Nonce) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.After(n.IssuedAt.Add(ttl))
}
