package events

import "time"

type UserRegistered struct {
	UserID        string    `json:"userId"`
	WalletAddress string    `json:"walletAddress"`
	Email         string    `json:"email"`
	At            time.Time `json:"at"`
}

func (UserRegistered) Name() string { return "user.registered" }

type NonceIssued struct {
	WalletAddress string    `json:"walletAddress"`
	At            time.Time `json:"at"`
}

func (NonceIssued) Name() string { return "nonce.issued" }
