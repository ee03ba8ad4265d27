// Package account contains the domain types and logic for user credentials.
package account

import (
	"time"
)

// Credential represents a registered user's login credential.
type Credential struct {
	// ID is the store-assigned numeric identifier.
	ID int64
	// Email is the unique login identifier, stored as given at signup.
	Email string
	// PasswordHash is the Argon2id hash in PHC format. The plaintext
	// password is never stored.
	PasswordHash string
	// CreatedAt is when the credential was created (UTC).
	CreatedAt time.Time
	// UpdatedAt is when the credential was last modified (UTC).
	UpdatedAt time.Time
}
