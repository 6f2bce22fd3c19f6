package impl

import (
	"errors"
	"fmt"

	"rwa-auth/internal/domain"
)

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrUserNotFound  = errors.New("user not found")
)

// persistence tags a storage failure so the HTTP layer answers with a generic
// 500 while the detail stays in the logs.
func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}
