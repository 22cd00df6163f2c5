// Package twofactor implements the WebAuthn second-factor ceremonies for the
// GeoTourist backend: registration (enrolling an authenticator) and
// authentication (proving possession of one), each split into an options
// phase and a verify phase.
//
// The package wraps the go-webauthn/webauthn library and provides:
//   - Service, the ceremony engine holding the relying-party policy
//   - UserDirectory and CredentialStore, the pluggable persistence contracts
//   - In-memory store implementations for development and testing
//   - An optional JWT generator for post-ceremony tokens
//
// # Ceremony state
//
// The only state between the two phases of a ceremony is the user's pending
// challenge, a single slot in the CredentialStore. Every options call
// overwrites it, every verify call consumes it, and a configurable TTL bounds
// its lifetime. Two concurrent options calls for the same user are resolved
// last-write-wins; the earlier ceremony then fails its verify phase.
//
// # Usage
//
//	svc, err := twofactor.NewService(twofactor.ServiceParams{
//	    Config: &twofactor.Config{
//	        RPID:          "tour-fusion.com",
//	        RPDisplayName: "TourFusion",
//	    },
//	    Directory:   twofactor.NewMemoryDirectory(),
//	    Credentials: twofactor.NewMemoryCredentialStore(),
//	})
//
// For production, back the two interfaces with a database; the
// internal/store/mongostore package provides MongoDB implementations.
//
// Note: WebAuthn requires HTTPS. Browsers only expose the API in secure
// contexts.
package twofactor
