package twofactor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Service implements the registration and authentication ceremonies. Each
// ceremony splits into an options phase, which issues a random challenge and
// persists it as the user's pending challenge, and a verify phase, which
// validates the client's signed response against that challenge.
//
// Cryptographic verification is delegated to go-webauthn; the service supplies
// inputs and interprets the result.
type Service struct {
	verifier *webauthn.WebAuthn
	config   *Config
	users    UserDirectory
	creds    CredentialStore
	now      func() time.Time
}

// ServiceParams contains dependencies for creating a ceremony service.
type ServiceParams struct {
	// Config is the relying-party configuration (required).
	Config *Config

	// Directory resolves user references (required).
	Directory UserDirectory

	// Credentials is the authenticator and challenge persistence layer (required).
	Credentials CredentialStore
}

// NewService creates a ceremony service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	verifier, err := webauthn.New(params.Config.toLibraryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn verifier: %w", err)
	}

	return &Service{
		verifier: verifier,
		config:   params.Config,
		users:    params.Directory,
		creds:    params.Credentials,
		now:      time.Now,
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// UserByEmail resolves a user by email address. Transports use this to turn
// an email into the opaque user reference the ceremony operations take.
func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError("get user by email", err)
	}
	return user, nil
}

// UserByID resolves a user by their opaque ID.
func (s *Service) UserByID(ctx context.Context, userID []byte) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user by id", err)
	}
	return user, nil
}

// BeginRegistration starts the registration ceremony for an existing user.
// The returned options must round-trip unmodified to the client authenticator.
// A user with no registered authenticators gets an empty exclude list; this
// is the first-registration path, not an error.
func (s *Service) BeginRegistration(ctx context.Context, userID []byte) (*protocol.CredentialCreation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user", err)
	}

	auths, err := s.creds.Authenticators(ctx, user.ID)
	if err != nil {
		return nil, storeError("get authenticators", err)
	}

	// Prevent re-registering existing authenticators.
	excludeList := make([]protocol.CredentialDescriptor, len(auths))
	for i, a := range auths {
		excludeList[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: a.CredentialID,
			Transport:    a.Transports,
		}
	}

	options, session, err := s.verifier.BeginRegistration(newCeremonyUser(user, auths),
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		return nil, WrapError("begin registration", err)
	}

	if err := s.saveChallenge(ctx, user.ID, session); err != nil {
		return nil, err
	}

	return options, nil
}

// FinishRegistration verifies a registration response against the user's
// pending challenge and, on success, appends the new authenticator to the
// user's set. The pending challenge is consumed by this call whether or not
// verification succeeds.
func (s *Service) FinishRegistration(ctx context.Context, userID []byte, response *protocol.ParsedCredentialCreationData) (*Result, error) {
	if response == nil {
		return nil, NewError("finish registration", ErrInvalidResponse)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user", err)
	}

	session, err := s.consumeChallenge(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	auths, err := s.creds.Authenticators(ctx, user.ID)
	if err != nil {
		return nil, storeError("get authenticators", err)
	}

	credential, err := s.verifier.CreateCredential(newCeremonyUser(user, auths), *session, response)
	if err != nil {
		return nil, NewError("verify registration", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	// The store's duplicate check is atomic with the insert, so a race
	// between two completions of the same credential cannot slip through.
	if err := s.creds.AddAuthenticator(ctx, user.ID, newAuthenticator(credential)); err != nil {
		return nil, storeError("add authenticator", err)
	}

	return &Result{Verified: true}, nil
}

// BeginLogin starts the authentication ceremony. It fails with
// ErrNoAuthenticators for users with nothing enrolled, since authentication
// cannot proceed without at least one factor.
func (s *Service) BeginLogin(ctx context.Context, userID []byte) (*protocol.CredentialAssertion, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user", err)
	}

	auths, err := s.creds.Authenticators(ctx, user.ID)
	if err != nil {
		return nil, storeError("get authenticators", err)
	}
	if len(auths) == 0 {
		return nil, NewError("begin login", ErrNoAuthenticators)
	}

	options, session, err := s.verifier.BeginLogin(newCeremonyUser(user, auths),
		webauthn.WithUserVerification(protocol.VerificationPreferred),
	)
	if err != nil {
		return nil, WrapError("begin login", err)
	}

	if err := s.saveChallenge(ctx, user.ID, session); err != nil {
		return nil, err
	}

	return options, nil
}

// FinishLogin verifies an authentication response against the user's pending
// challenge and the stored authenticator, then persists the new sign counter.
// The referenced authenticator is resolved before the verifier runs, so an
// unknown credential ID is reported without consulting it.
func (s *Service) FinishLogin(ctx context.Context, userID []byte, response *protocol.ParsedCredentialAssertionData) (*Result, error) {
	if response == nil {
		return nil, NewError("finish login", ErrInvalidResponse)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user", err)
	}

	session, err := s.consumeChallenge(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	matched, err := s.creds.Authenticator(ctx, user.ID, response.RawID)
	if err != nil {
		return nil, storeError("get authenticator", err)
	}

	auths, err := s.creds.Authenticators(ctx, user.ID)
	if err != nil {
		return nil, storeError("get authenticators", err)
	}

	validated, err := s.verifier.ValidateLogin(newCeremonyUser(user, auths), *session, response)
	if err != nil {
		return nil, NewError("verify login", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	newCount := validated.Authenticator.SignCount
	if counterRegressed(matched.SignCount, newCount) {
		return nil, NewError("verify login",
			fmt.Errorf("%w: sign counter regression (stored %d, reported %d)",
				ErrVerificationFailed, matched.SignCount, newCount))
	}

	if err := s.creds.UpdateCounter(ctx, user.ID, matched.CredentialID, newCount); err != nil {
		return nil, storeError("update counter", err)
	}

	return &Result{Verified: true}, nil
}

// counterRegressed reports whether a reported sign counter indicates a
// replayed or cloned authenticator. A stored counter of zero is the special
// case for authenticators that never increment and must not trip detection.
func counterRegressed(stored, reported uint32) bool {
	return reported <= stored && stored != 0
}

// saveChallenge persists session data as the user's pending challenge,
// overwriting any prior value.
func (s *Service) saveChallenge(ctx context.Context, userID []byte, session *webauthn.SessionData) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return NewError("marshal session", err)
	}
	err = s.creds.SetChallenge(ctx, userID, &PendingChallenge{
		Session:  payload,
		IssuedAt: s.now().UTC(),
	})
	if err != nil {
		return storeError("set challenge", err)
	}
	return nil
}

// consumeChallenge loads and clears the user's pending challenge. The clear
// happens on every load so a challenge is usable at most once; a failed
// verify attempt requires a fresh options call.
func (s *Service) consumeChallenge(ctx context.Context, userID []byte) (*webauthn.SessionData, error) {
	pending, err := s.creds.Challenge(ctx, userID)
	if err != nil {
		return nil, storeError("get challenge", err)
	}

	// Best effort: a failed clear leaves a challenge that will be
	// overwritten by the next options call anyway.
	_ = s.creds.ClearChallenge(ctx, userID)

	if ttl := s.config.ChallengeTTL; ttl > 0 && s.now().Sub(pending.IssuedAt) > ttl {
		return nil, NewError("get challenge", ErrChallengeExpired)
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(pending.Session, &session); err != nil {
		return nil, NewError("unmarshal session", err)
	}
	return &session, nil
}
