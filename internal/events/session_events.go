package events

import "time"

type SessionIssued struct {
	UserID        string    `json:"userId"`
	WalletAddress string    `json:"walletAddress"`
	Strategy      string    `json:"strategy"`
	ExpiresAt     time.Time `json:"expiresAt"`
	At            time.Time `json:"at"`
}

func (SessionIssued) Name() string { return "session.issued" }
