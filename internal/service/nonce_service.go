package service

import "context"

// NonceService owns the single live nonce per wallet address.
type NonceService interface {
	// Issue generates a fresh nonce, replacing any unused one for address.
	Issue(ctx context.Context, address string) (string, error)
	// Peek returns the live nonce without consuming it, or domain.ErrNonceNotFound.
	Peek(ctx context.Context, address string) (string, error)
	// Invalidate deletes whatever nonce is on file and reports whether one was.
	Invalidate(ctx context.Context, address string) (bool, error)
	// Consume deletes the nonce only if it still equals nonce. Exactly one of
	// several concurrent callers observes true.
	Consume(ctx context.Context, address, nonce string) (bool, error)
}
