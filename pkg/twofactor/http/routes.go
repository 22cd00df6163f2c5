package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountChi mounts the two-factor ceremony routes on a chi router.
//
// Example:
//
//	handler := twofactorhttp.NewHandler(svc)
//	r.Route("/api/2fa", func(r chi.Router) {
//	    twofactorhttp.MountChi(r, handler)
//	})
func MountChi(r chi.Router, h *Handler) {
	r.Post("/registration/options", h.RegistrationOptions)
	r.Post("/registration/verify", h.RegistrationVerify)
	r.Post("/authentication/options", h.AuthenticationOptions)
	r.Post("/authentication/verify", h.AuthenticationVerify)
}

// MountStdlib mounts the ceremony routes on a stdlib http.ServeMux.
// The prefix should not include a trailing slash.
func MountStdlib(mux *http.ServeMux, prefix string, h *Handler) {
	mux.HandleFunc("POST "+prefix+"/registration/options", h.RegistrationOptions)
	mux.HandleFunc("POST "+prefix+"/registration/verify", h.RegistrationVerify)
	mux.HandleFunc("POST "+prefix+"/authentication/options", h.AuthenticationOptions)
	mux.HandleFunc("POST "+prefix+"/authentication/verify", h.AuthenticationVerify)
}

// RouteEntry represents a single route with its method, path, and handler.
type RouteEntry struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Routes returns the ceremony routes for manual mounting on routers
// without a dedicated mount helper.
func (h *Handler) Routes() []RouteEntry {
	return []RouteEntry{
		{Method: "POST", Path: "/registration/options", Handler: h.RegistrationOptions},
		{Method: "POST", Path: "/registration/verify", Handler: h.RegistrationVerify},
		{Method: "POST", Path: "/authentication/options", Handler: h.AuthenticationOptions},
		{Method: "POST", Path: "/authentication/verify", Handler: h.AuthenticationVerify},
	}
}
