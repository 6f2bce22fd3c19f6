package dto

import (
	"time"

	"rwa-auth/internal/walletsig"
)

// VerifyRequest is the signed proof returned by the wallet.
type VerifyRequest struct {
	Address   string                   `json:"address"`
	Nonce     string                   `json:"nonce"`
	Signature string                   `json:"signature"`
	PublicKey walletsig.PublicKeyInput `json:"publicKey"`
}

type UserResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Role    string `json:"role"`
}

type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	ExpiresIn int64        `json:"expiresIn"`
	User      UserResponse `json:"user"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
