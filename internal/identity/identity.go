package identity

import (
	"context"
	"errors"
)

// Principal is a verified caller. IsAdmin comes from the stored
// Profile row, never from the credential itself.
type Principal struct {
	UserID  string
	Email   string
	Name    string
	IsAdmin bool
}

// Verifier resolves a bearer credential to a Principal, ensuring the
// matching Profile row exists.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("identity_unavailable")
)
