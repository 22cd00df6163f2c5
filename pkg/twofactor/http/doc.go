// Package http provides HTTP handlers for the two-factor WebAuthn ceremony
// endpoints. The handlers are framework-agnostic http.HandlerFunc values with
// mount helpers for chi and the standard library mux.
//
// Four endpoints cover both ceremonies:
//
//	POST /registration/options    - issue attestation options
//	POST /registration/verify     - verify attestation, save authenticator
//	POST /authentication/options  - issue assertion options
//	POST /authentication/verify   - verify assertion, bump sign counter
//
// Requests identify the user by email or by base64url-encoded user ID. The
// verify endpoints additionally carry the raw authenticator response under
// the "response" key, forwarded to the ceremony service unparsed.
//
// Error responses deliberately collapse account-probing failures (unknown
// user, no pending challenge, no registered authenticators) into a single
// generic 401 so the endpoints cannot be used for account enumeration.
package http
