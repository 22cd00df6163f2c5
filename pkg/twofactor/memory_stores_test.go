package twofactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	directory := NewMemoryDirectory()

	user := directory.AddUser(&User{Email: "traveler@example.com", DisplayName: "Traveler"})
	require.NotEmpty(t, user.ID)

	byID, err := directory.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "traveler@example.com", byID.Email)

	byEmail, err := directory.GetByEmail(ctx, "traveler@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = directory.GetByID(ctx, []byte("missing"))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = directory.GetByEmail(ctx, "stranger@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryDirectory_KeepsProvidedID(t *testing.T) {
	directory := NewMemoryDirectory()

	user := directory.AddUser(&User{ID: []byte("fixed-id"), Email: "fixed@example.com"})
	assert.Equal(t, []byte("fixed-id"), user.ID)
}

func TestMemoryCredentialStore_Authenticators(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	userID := []byte("user-1")

	// Unknown users have an empty set, not an error.
	auths, err := store.Authenticators(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, auths)

	a := &Authenticator{CredentialID: []byte("cred-1"), PublicKey: []byte("pk"), SignCount: 3}
	require.NoError(t, store.AddAuthenticator(ctx, userID, a))

	auths, err = store.Authenticators(ctx, userID)
	require.NoError(t, err)
	require.Len(t, auths, 1)
	assert.Equal(t, []byte("cred-1"), auths[0].CredentialID)

	got, err := store.Authenticator(ctx, userID, []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.SignCount)

	_, err = store.Authenticator(ctx, userID, []byte("cred-2"))
	assert.ErrorIs(t, err, ErrAuthenticatorNotFound)

	_, err = store.Authenticator(ctx, []byte("user-2"), []byte("cred-1"))
	assert.ErrorIs(t, err, ErrAuthenticatorNotFound)
}

func TestMemoryCredentialStore_DuplicateAdd(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	userID := []byte("user-1")

	a := &Authenticator{CredentialID: []byte("cred-1")}
	require.NoError(t, store.AddAuthenticator(ctx, userID, a))

	err := store.AddAuthenticator(ctx, userID, &Authenticator{CredentialID: []byte("cred-1")})
	assert.ErrorIs(t, err, ErrDuplicateCredential)
	assert.Equal(t, 1, store.Count())

	// Same credential ID under a different user is a separate registration.
	require.NoError(t, store.AddAuthenticator(ctx, []byte("user-2"), &Authenticator{CredentialID: []byte("cred-1")}))
	assert.Equal(t, 2, store.Count())
}

func TestMemoryCredentialStore_UpdateCounter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	userID := []byte("user-1")

	a := &Authenticator{CredentialID: []byte("cred-1"), SignCount: 5}
	require.NoError(t, store.AddAuthenticator(ctx, userID, a))

	require.NoError(t, store.UpdateCounter(ctx, userID, []byte("cred-1"), 9))
	got, err := store.Authenticator(ctx, userID, []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.SignCount)
	assert.False(t, got.LastUsedAt.IsZero())

	// The stored counter never decreases.
	require.NoError(t, store.UpdateCounter(ctx, userID, []byte("cred-1"), 2))
	got, err = store.Authenticator(ctx, userID, []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.SignCount)

	err = store.UpdateCounter(ctx, userID, []byte("cred-2"), 1)
	assert.ErrorIs(t, err, ErrAuthenticatorNotFound)
}

func TestMemoryCredentialStore_Challenge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	userID := []byte("user-1")

	_, err := store.Challenge(ctx, userID)
	assert.ErrorIs(t, err, ErrNoPendingChallenge)

	first := &PendingChallenge{Session: []byte("session-1"), IssuedAt: time.Now()}
	require.NoError(t, store.SetChallenge(ctx, userID, first))

	// Last write wins the slot.
	second := &PendingChallenge{Session: []byte("session-2"), IssuedAt: time.Now()}
	require.NoError(t, store.SetChallenge(ctx, userID, second))

	got, err := store.Challenge(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []byte("session-2"), got.Session)

	require.NoError(t, store.ClearChallenge(ctx, userID))
	_, err = store.Challenge(ctx, userID)
	assert.ErrorIs(t, err, ErrNoPendingChallenge)

	// Clearing an absent challenge is a no-op.
	require.NoError(t, store.ClearChallenge(ctx, userID))
	require.NoError(t, store.ClearChallenge(ctx, []byte("user-2")))
}

func TestMemoryCredentialStore_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	userID := []byte("user-1")

	require.NoError(t, store.AddAuthenticator(ctx, userID, &Authenticator{CredentialID: []byte("cred-1"), SignCount: 1}))

	got, err := store.Authenticator(ctx, userID, []byte("cred-1"))
	require.NoError(t, err)
	got.SignCount = 99

	again, err := store.Authenticator(ctx, userID, []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), again.SignCount)
}
