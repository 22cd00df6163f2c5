package twofactor

import (
	"context"
)

// UserDirectory resolves opaque user references to user records. The ceremony
// engine only reads from it; account provisioning lives elsewhere.
type UserDirectory interface {
	// GetByID retrieves a user by their stable handle.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, userID []byte) (*User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// CredentialStore is the durable mapping from a user to their registered
// authenticators and single pending challenge slot. The first write for a
// user implicitly creates its backing record (upsert-on-first-write); there
// is no separate provisioning step.
type CredentialStore interface {
	// Authenticators returns all authenticators registered for a user.
	// A user with none registered yields an empty slice, not an error.
	Authenticators(ctx context.Context, userID []byte) ([]*Authenticator, error)

	// Authenticator returns the user's authenticator with the given
	// credential ID. Returns ErrAuthenticatorNotFound if absent.
	Authenticator(ctx context.Context, userID, credentialID []byte) (*Authenticator, error)

	// AddAuthenticator appends a new authenticator to the user's set. The
	// duplicate-credential-ID check is atomic with the insert: concurrent
	// adds of the same credential ID cannot both succeed. Returns
	// ErrDuplicateCredential if the ID is already registered for the user.
	AddAuthenticator(ctx context.Context, userID []byte, a *Authenticator) error

	// UpdateCounter persists a new sign counter onto the identified
	// authenticator, leaving other fields and other authenticators
	// untouched. The stored value never decreases.
	UpdateCounter(ctx context.Context, userID, credentialID []byte, signCount uint32) error

	// SetChallenge stores the user's pending challenge, overwriting any
	// prior value (last-write-wins).
	SetChallenge(ctx context.Context, userID []byte, c *PendingChallenge) error

	// Challenge returns the user's pending challenge.
	// Returns ErrNoPendingChallenge if none is set.
	Challenge(ctx context.Context, userID []byte) (*PendingChallenge, error)

	// ClearChallenge removes the user's pending challenge. Clearing an
	// absent challenge is not an error.
	ClearChallenge(ctx context.Context, userID []byte) error
}

// TokenGenerator issues a session token after a verified ceremony. Optional;
// transports that manage their own sessions can skip it.
type TokenGenerator interface {
	// Token creates a token asserting the user completed a ceremony.
	Token(ctx context.Context, user *User) (string, error)
}
