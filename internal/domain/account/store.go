package account

import (
	"context"
	"errors"
)

// Sentinel errors for credential store operations.
var (
	// ErrCredentialNotFound is returned when no credential has the given email.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrDuplicateEmail is returned when a signup reuses an existing email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store provides credential persistence.
// This interface is defined in the domain to avoid circular imports.
// Implementations: SQLite (durable), in-memory (dev/test).
type Store interface {
	// Create stores a new credential and assigns its ID.
	// Returns ErrDuplicateEmail if the email is already registered.
	Create(ctx context.Context, cred *Credential) error

	// GetByEmail retrieves a credential by email.
	// Returns ErrCredentialNotFound if no credential has that email.
	GetByEmail(ctx context.Context, email string) (*Credential, error)
}
