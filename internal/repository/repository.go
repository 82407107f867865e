package repository

import (
	"context"

	"github.com/sakif/eljunior/internal/model"
)

// SessionRepository persists the single authenticated session.
//
// Implementations store the session atomically: a reader sees either the
// previous record, the new one, or nothing, never a mix.
type SessionRepository interface {
	// LoadSession returns nil, nil when no session is stored.
	LoadSession(ctx context.Context) (*model.Session, error)
	SaveSession(ctx context.Context, s model.Session) error
	DeleteSession(ctx context.Context) error
}

// TokenSealer encrypts the token before it reaches disk.
type TokenSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}
