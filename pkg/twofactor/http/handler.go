package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/bingKegeta/GeoTourist-Backend/pkg/metrics"
	"github.com/bingKegeta/GeoTourist-Backend/pkg/twofactor"
)

// Handler provides HTTP handlers for the two-factor ceremony endpoints.
// These handlers can be mounted on any HTTP router.
type Handler struct {
	service *twofactor.Service
	tokens  twofactor.TokenGenerator // optional
	logger  *slog.Logger
}

// NewHandler creates a new ceremony HTTP handler.
func NewHandler(service *twofactor.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithTokenGenerator sets an optional post-ceremony token generator.
func (h *Handler) WithTokenGenerator(tokens twofactor.TokenGenerator) *Handler {
	h.tokens = tokens
	return h
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// RegistrationOptions handles POST /registration/options
//
// Request body:
//
//	{"email": "user@example.com"} or {"user_id": "base64-user-id"}
//
// Response: WebAuthn PublicKeyCredentialCreationOptions, round-tripped
// unmodified to the client authenticator.
func (h *Handler) RegistrationOptions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, ok := h.resolveUser(w, r, nil)
	if !ok {
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.PhaseOptions, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	options, err := h.service.BeginRegistration(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.PhaseOptions, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.PhaseOptions, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeJSON(w, http.StatusOK, options)
}

// RegistrationVerify handles POST /registration/verify
//
// Request body:
//
//	{"email": "...", "response": {...attestation response...}}
//
// Response: {"verified": true} plus a token when a generator is configured.
func (h *Handler) RegistrationVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var raw json.RawMessage
	user, ok := h.resolveUser(w, r, &raw)
	if !ok {
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.PhaseVerify, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(raw))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid attestation response")
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.PhaseVerify, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	result, err := h.service.FinishRegistration(r.Context(), user.ID, response)
	if err != nil {
		h.handleServiceError(w, r, err)
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.PhaseVerify, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.PhaseVerify, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeVerified(w, r, user, result)
}

// AuthenticationOptions handles POST /authentication/options
//
// Request body:
//
//	{"email": "user@example.com"} or {"user_id": "base64-user-id"}
//
// Response: WebAuthn PublicKeyCredentialRequestOptions.
func (h *Handler) AuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, ok := h.resolveUser(w, r, nil)
	if !ok {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.PhaseOptions, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	options, err := h.service.BeginLogin(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.PhaseOptions, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.PhaseOptions, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeJSON(w, http.StatusOK, options)
}

// AuthenticationVerify handles POST /authentication/verify
//
// Request body:
//
//	{"email": "...", "response": {...assertion response...}}
//
// Response: {"verified": true} plus a token when a generator is configured.
func (h *Handler) AuthenticationVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var raw json.RawMessage
	user, ok := h.resolveUser(w, r, &raw)
	if !ok {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.PhaseVerify, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(raw))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid assertion response")
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.PhaseVerify, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	result, err := h.service.FinishLogin(r.Context(), user.ID, response)
	if err != nil {
		h.handleServiceError(w, r, err)
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.PhaseVerify, metrics.StatusError, time.Since(start).Seconds())
		return
	}

	metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.PhaseVerify, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeVerified(w, r, user, result)
}

// resolveUser decodes the request body and resolves the referenced user.
// When rawResponse is non-nil, the body's response field is stored there for
// the verify endpoints. On failure it writes the error response and returns
// ok == false.
func (h *Handler) resolveUser(w http.ResponseWriter, r *http.Request, rawResponse *json.RawMessage) (*twofactor.User, bool) {
	var req CeremonyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return nil, false
	}

	if rawResponse != nil {
		if len(req.Response) == 0 {
			h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "response is required")
			return nil, false
		}
		*rawResponse = req.Response
	}

	var user *twofactor.User
	var err error
	switch {
	case req.UserID != "":
		var userID []byte
		userID, err = base64.RawURLEncoding.DecodeString(req.UserID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid user ID encoding")
			return nil, false
		}
		user, err = h.service.UserByID(r.Context(), userID)
	case req.Email != "":
		user, err = h.service.UserByEmail(r.Context(), req.Email)
	default:
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "email or user_id is required")
		return nil, false
	}

	if err != nil {
		h.handleServiceError(w, r, err)
		return nil, false
	}
	return user, true
}

// writeVerified writes the verify success body, attaching a token when a
// generator is configured.
func (h *Handler) writeVerified(w http.ResponseWriter, r *http.Request, user *twofactor.User, result *twofactor.Result) {
	resp := VerifyResponse{Verified: result.Verified}
	if h.tokens != nil && result.Verified {
		token, err := h.tokens.Token(r.Context(), user)
		if err != nil {
			h.logger.Error("failed to generate token", "error", err)
			h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
			return
		}
		resp.Token = token
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleServiceError maps ceremony errors to HTTP responses. Failures an
// attacker could use to probe accounts (unknown user, missing challenge,
// unknown authenticator, empty authenticator set) collapse into one generic
// unauthorized response; the detailed cause goes to the log only.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("ceremony step failed", "path", r.URL.Path, "error", err)

	switch {
	case twofactor.IsDuplicateCredential(err):
		h.writeError(w, http.StatusConflict, ErrorCodeDuplicateCredential, "credential already registered")
	case twofactor.IsVerificationFailed(err):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
	case twofactor.IsUserNotFound(err),
		twofactor.IsNoPendingChallenge(err),
		errors.Is(err, twofactor.ErrNoAuthenticators),
		errors.Is(err, twofactor.ErrAuthenticatorNotFound):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeCeremonyFailed, "ceremony failed")
	case errors.Is(err, twofactor.ErrInvalidResponse):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid authenticator response")
	case twofactor.IsStoreUnavailable(err):
		h.writeError(w, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable, "store unavailable")
	default:
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
