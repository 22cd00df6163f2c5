package twofactor

import (
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations.
var (
	// ErrUserNotFound is returned when the user directory cannot resolve a user.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoPendingChallenge is returned when a verify step runs without a
	// preceding options step for the same user.
	ErrNoPendingChallenge = errors.New("no pending challenge")

	// ErrChallengeExpired is returned when the pending challenge exists but
	// was issued longer ago than the configured TTL.
	ErrChallengeExpired = errors.New("pending challenge expired")

	// ErrNoAuthenticators is returned when authentication is attempted for a
	// user with no enrolled authenticators.
	ErrNoAuthenticators = errors.New("user has no registered authenticators")

	// ErrAuthenticatorNotFound is returned when an assertion references a
	// credential ID that is not in the user's registered set.
	ErrAuthenticatorNotFound = errors.New("authenticator not found")

	// ErrDuplicateCredential is returned when registering a credential ID that
	// already exists for the user.
	ErrDuplicateCredential = errors.New("credential already registered")

	// ErrVerificationFailed is returned when a client response fails
	// cryptographic verification, including sign counter regression.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrStoreUnavailable is returned when the credential store or user
	// directory fails with a transient I/O error. This is the only class a
	// caller might reasonably retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidResponse is returned when the authenticator response is
	// structurally invalid.
	ErrInvalidResponse = errors.New("invalid authenticator response")
)

// CeremonyError wraps an error with the operation that produced it.
type CeremonyError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *CeremonyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CeremonyError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *CeremonyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new CeremonyError with the given operation and error.
func NewError(op string, err error) error {
	return &CeremonyError{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// storeError maps a store failure onto ErrStoreUnavailable unless the store
// already reported one of the ceremony sentinels.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrUserNotFound,
		ErrNoPendingChallenge,
		ErrAuthenticatorNotFound,
		ErrDuplicateCredential,
	} {
		if errors.Is(err, sentinel) {
			return NewError(op, err)
		}
	}
	return NewError(op, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsNoPendingChallenge returns true if the error indicates no usable pending
// challenge, whether missing or expired.
func IsNoPendingChallenge(err error) bool {
	return errors.Is(err, ErrNoPendingChallenge) || errors.Is(err, ErrChallengeExpired)
}

// IsVerificationFailed returns true if the error indicates verification failed.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}

// IsDuplicateCredential returns true if the error indicates a duplicate
// credential registration.
func IsDuplicateCredential(err error) bool {
	return errors.Is(err, ErrDuplicateCredential)
}

// IsStoreUnavailable returns true if the error indicates a transient store failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
