package twofactor

import (
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// User is the read-only record resolved from the user directory. The ID is
// the opaque user handle presented to authenticators; it never changes for
// the lifetime of the account.
type User struct {
	// ID is the opaque, stable user handle.
	ID []byte `json:"id"`

	// Email is the user's unique email address.
	Email string `json:"email"`

	// DisplayName is the human-readable handle shown in authenticator prompts.
	DisplayName string `json:"display_name,omitempty"`
}

// DeviceType classifies an authenticator by whether its key material can
// exist on more than one device.
type DeviceType string

const (
	// SingleDevice authenticators keep the private key on exactly one device.
	SingleDevice DeviceType = "single-device"

	// MultiDevice authenticators sync the private key across devices (passkeys).
	MultiDevice DeviceType = "multi-device"
)

// Authenticator is the server-side record of one registered authentication
// factor, bound to exactly one user.
type Authenticator struct {
	// CredentialID is the globally unique handle the client presents to
	// claim this factor.
	CredentialID []byte `json:"credential_id" bson:"credential_id"`

	// PublicKey is the credential public key in COSE format. It never
	// leaves the server.
	PublicKey []byte `json:"public_key" bson:"public_key"`

	// AttestationType records how provenance was conveyed at registration.
	AttestationType string `json:"attestation_type" bson:"attestation_type"`

	// SignCount is the authenticator-reported usage counter, used to detect
	// cloned credentials. Monotonically non-decreasing; may stay 0 forever
	// for authenticators that never increment.
	SignCount uint32 `json:"sign_count" bson:"sign_count"`

	// DeviceType reports whether the key material is single- or multi-device.
	DeviceType DeviceType `json:"device_type" bson:"device_type"`

	// BackedUp reports whether the key material is currently backed up.
	BackedUp bool `json:"backed_up" bson:"backed_up"`

	// Transports are advisory hints for reaching the authenticator.
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty" bson:"transports,omitempty"`

	// AAGUID identifies the authenticator model.
	AAGUID []byte `json:"aaguid,omitempty" bson:"aaguid,omitempty"`

	// CreatedAt is when the authenticator was registered.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// LastUsedAt is when the authenticator last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty" bson:"last_used_at,omitempty"`
}

// PendingChallenge is the single-slot ceremony state for one user: the
// session data issued by the last options call. Every options call overwrites
// it; any verify attempt consumes it.
type PendingChallenge struct {
	// Session is the marshaled webauthn.SessionData for the in-flight ceremony.
	Session []byte `json:"session" bson:"session"`

	// IssuedAt is when the challenge was generated, used for TTL enforcement.
	IssuedAt time.Time `json:"issued_at" bson:"issued_at"`
}

// Result is the outcome of a verify step.
type Result struct {
	// Verified mirrors the verifier's outcome.
	Verified bool `json:"verified"`
}

// toLibrary converts an Authenticator to the go-webauthn credential type.
func (a *Authenticator) toLibrary() webauthn.Credential {
	return webauthn.Credential{
		ID:              a.CredentialID,
		PublicKey:       a.PublicKey,
		AttestationType: a.AttestationType,
		Transport:       a.Transports,
		Flags: webauthn.CredentialFlags{
			BackupEligible: a.DeviceType == MultiDevice,
			BackupState:    a.BackedUp,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    a.AAGUID,
			SignCount: a.SignCount,
		},
	}
}

// newAuthenticator builds the stored record from a verified registration.
// The BE flag marks credentials whose key material can be synced, which is
// what distinguishes multi-device authenticators.
func newAuthenticator(cred *webauthn.Credential) *Authenticator {
	deviceType := SingleDevice
	if cred.Flags.BackupEligible {
		deviceType = MultiDevice
	}
	return &Authenticator{
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		SignCount:       cred.Authenticator.SignCount,
		DeviceType:      deviceType,
		BackedUp:        cred.Flags.BackupState,
		Transports:      cred.Transport,
		AAGUID:          cred.Authenticator.AAGUID,
		CreatedAt:       time.Now().UTC(),
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// ceremonyUser adapts a directory user and their authenticators to the
// webauthn.User interface the verifier expects.
type ceremonyUser struct {
	user  *User
	creds []webauthn.Credential
}

func newCeremonyUser(user *User, auths []*Authenticator) *ceremonyUser {
	creds := make([]webauthn.Credential, len(auths))
	for i, a := range auths {
		creds[i] = a.toLibrary()
	}
	return &ceremonyUser{user: user, creds: creds}
}

// WebAuthnID returns the user's stable handle.
func (u *ceremonyUser) WebAuthnID() []byte {
	return u.user.ID
}

// WebAuthnName returns the user's account name.
func (u *ceremonyUser) WebAuthnName() string {
	return u.user.Email
}

// WebAuthnDisplayName returns the name shown in authenticator prompts.
func (u *ceremonyUser) WebAuthnDisplayName() string {
	if u.user.DisplayName == "" {
		return u.user.Email
	}
	return u.user.DisplayName
}

// WebAuthnCredentials returns the user's registered credentials.
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return u.creds
}
