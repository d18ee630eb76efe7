package handler

import (
	"net/http"
	"strings"

	"github.com/xenking/smart-trolley/internal/domain/identity"
)

// HeaderAPIKey is the alternative to an Authorization bearer token.
const HeaderAPIKey = "api_key"

type userHandlerFunc func(w http.ResponseWriter, r *http.Request, u identity.User)

// apiKey extracts the raw key from "Authorization: Bearer <key>" or the
// api_key header.
func apiKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey))
}

func (h *Handler) authenticated(fn userHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := h.auth.Authenticate(r.Context(), apiKey(r))
		if err != nil {
			writeError(w, r, identity.ErrAnonymous)
			return
		}
		r = r.WithContext(identity.WithUser(r.Context(), u))
		fn(w, r, u)
	})
}

func (h *Handler) requireAdmin(fn userHandlerFunc) userHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, u identity.User) {
		if !u.IsAdmin {
			writeError(w, r, errForbidden)
			return
		}
		fn(w, r, u)
	}
}
