package twofactor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCeremonyError(t *testing.T) {
	err := NewError("begin login", ErrNoAuthenticators)

	assert.Equal(t, "begin login: user has no registered authenticators", err.Error())
	assert.ErrorIs(t, err, ErrNoAuthenticators)

	var cerr *CeremonyError
	assert.True(t, errors.As(err, &cerr))
	assert.Equal(t, "begin login", cerr.Op)
}

func TestCeremonyError_NoOp(t *testing.T) {
	err := &CeremonyError{Err: ErrUserNotFound}
	assert.Equal(t, "user not found", err.Error())
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError("op", nil))

	wrapped := WrapError("op", ErrVerificationFailed)
	assert.ErrorIs(t, wrapped, ErrVerificationFailed)
}

func TestStoreError(t *testing.T) {
	assert.Nil(t, storeError("op", nil))

	// Sentinels pass through untouched.
	for _, sentinel := range []error{
		ErrUserNotFound,
		ErrNoPendingChallenge,
		ErrAuthenticatorNotFound,
		ErrDuplicateCredential,
	} {
		err := storeError("op", sentinel)
		assert.ErrorIs(t, err, sentinel)
		assert.NotErrorIs(t, err, ErrStoreUnavailable)
	}

	// Wrapped sentinels pass through too.
	err := storeError("op", fmt.Errorf("query: %w", ErrUserNotFound))
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)

	// Anything else is a transient store failure.
	err = storeError("op", errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsUserNotFound(NewError("op", ErrUserNotFound)))
	assert.False(t, IsUserNotFound(ErrNoAuthenticators))

	// Missing and expired challenges are the same condition to callers.
	assert.True(t, IsNoPendingChallenge(NewError("op", ErrNoPendingChallenge)))
	assert.True(t, IsNoPendingChallenge(NewError("op", ErrChallengeExpired)))
	assert.False(t, IsNoPendingChallenge(ErrUserNotFound))

	assert.True(t, IsVerificationFailed(NewError("op", fmt.Errorf("%w: bad signature", ErrVerificationFailed))))
	assert.True(t, IsDuplicateCredential(NewError("op", ErrDuplicateCredential)))
	assert.True(t, IsStoreUnavailable(NewError("op", fmt.Errorf("%w: timeout", ErrStoreUnavailable))))

	assert.False(t, IsVerificationFailed(nil))
	assert.False(t, IsDuplicateCredential(nil))
}
