package http

import "encoding/json"

// CeremonyRequest identifies the user a ceremony step is for. Either Email or
// UserID (base64url, unpadded) must be set; UserID wins when both are present.
type CeremonyRequest struct {
	// Email is the user's email address.
	Email string `json:"email,omitempty"`

	// UserID is the base64url-encoded user handle.
	UserID string `json:"user_id,omitempty"`

	// Response is the authenticator's attestation or assertion response,
	// passed through verbatim to the ceremony engine. Required for the
	// verify endpoints, ignored by the options endpoints.
	Response json.RawMessage `json:"response,omitempty"`
}

// VerifyResponse is the body returned by the verify endpoints.
type VerifyResponse struct {
	// Verified mirrors the verifier's outcome.
	Verified bool `json:"verified"`

	// Token is the post-ceremony session token, when a generator is configured.
	Token string `json:"token,omitempty"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Verified is always false on errors from the verify endpoints.
	Verified bool `json:"verified"`
}

// Error codes returned in ErrorResponse. Account-probing failures share the
// single ceremony_failed code so responses do not reveal whether a user,
// challenge, or authenticator exists.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeCeremonyFailed      = "ceremony_failed"
	ErrorCodeVerificationFailed  = "verification_failed"
	ErrorCodeDuplicateCredential = "duplicate_credential"
	ErrorCodeStoreUnavailable    = "store_unavailable"
	ErrorCodeInternalError       = "internal_error"
)
