package domain

import "errors"

var (
	ErrInvalidAddressFormat     = errors.New("invalid address format")
	ErrMissingField             = errors.New("missing required field")
	ErrNonceNotFound            = errors.New("nonce not found or expired")
	ErrNonceMismatch            = errors.New("invalid nonce")
	ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrPersistence              = errors.New("persistence failure")
)
