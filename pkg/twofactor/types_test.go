package twofactor

import (
	"testing"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
)

func TestNewAuthenticator_DeviceType(t *testing.T) {
	cred := &webauthn.Credential{
		ID:              []byte("cred-1"),
		PublicKey:       []byte("pk"),
		AttestationType: "none",
		Flags:           webauthn.CredentialFlags{BackupEligible: false, BackupState: false},
	}

	a := newAuthenticator(cred)
	assert.Equal(t, SingleDevice, a.DeviceType)
	assert.False(t, a.BackedUp)
	assert.False(t, a.CreatedAt.IsZero())

	cred.Flags = webauthn.CredentialFlags{BackupEligible: true, BackupState: true}
	a = newAuthenticator(cred)
	assert.Equal(t, MultiDevice, a.DeviceType)
	assert.True(t, a.BackedUp)
}

func TestAuthenticator_ToLibrary(t *testing.T) {
	a := &Authenticator{
		CredentialID:    []byte("cred-1"),
		PublicKey:       []byte("pk"),
		AttestationType: "none",
		SignCount:       7,
		DeviceType:      MultiDevice,
		BackedUp:        true,
		AAGUID:          []byte("aaguid"),
	}

	cred := a.toLibrary()
	assert.Equal(t, []byte("cred-1"), cred.ID)
	assert.Equal(t, uint32(7), cred.Authenticator.SignCount)
	assert.True(t, cred.Flags.BackupEligible)
	assert.True(t, cred.Flags.BackupState)
}

func TestCeremonyUser(t *testing.T) {
	user := &User{ID: []byte("user-1"), Email: "traveler@example.com"}

	u := newCeremonyUser(user, []*Authenticator{{CredentialID: []byte("cred-1")}})
	assert.Equal(t, []byte("user-1"), u.WebAuthnID())
	assert.Equal(t, "traveler@example.com", u.WebAuthnName())
	assert.Equal(t, "traveler@example.com", u.WebAuthnDisplayName())
	assert.Len(t, u.WebAuthnCredentials(), 1)

	user.DisplayName = "Traveler"
	assert.Equal(t, "Traveler", u.WebAuthnDisplayName())
}
