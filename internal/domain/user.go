package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SyntheticEmailDomain is used for users registered by wallet signature alone.
const SyntheticEmailDomain = "wallet.rwa.local"

type User struct {
	ID            UserID    `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	WalletAddress string    `gorm:"type:text;not null;uniqueIndex:ux_users_wallet_address" db:"wallet_address" json:"walletAddress"`
	Email         string    `gorm:"type:text;not null" db:"email" json:"email"`
	Role          string    `gorm:"type:text;not null;default:user" db:"role" json:"role"`
	CreatedAt     time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func SyntheticEmail(address string) string {
	return strings.ToLower(address) + "@" + SyntheticEmailDomain
}
