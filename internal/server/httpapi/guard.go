package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/metrics"
)

// extractBearer returns the token from "Authorization: Bearer <token>", or ""
// when the header is missing, blank or uses another scheme.
func extractBearer(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) < len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(common.BearerPrefix):])
}

// authenticate verifies the bearer token. It returns common.ErrMissingToken
// when there is nothing to verify.
func (s *Server) authenticate(r *http.Request) (*auth.Identity, error) {
	token := extractBearer(r)
	if token == "" {
		return nil, common.ErrMissingToken
	}
	return s.tokens.Verify(token)
}

// accessGuard authenticates the request and binds the caller's identity to
// its context. No token is 401; a token that fails verification for any
// reason is 403.
func (s *Server) accessGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(r)
		if errors.Is(err, common.ErrMissingToken) {
			metrics.AuthEventsTotal.WithLabelValues("guard", "missing").Inc()
			writeMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}
		if err != nil {
			metrics.AuthEventsTotal.WithLabelValues("guard", "invalid").Inc()
			s.logger.Debug(r.Context(), "token rejected", "error", err)
			writeMessage(w, http.StatusForbidden, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), *id)))
	})
}

// identity returns the caller bound by accessGuard.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

// tokenFromQuery lets browser websocket clients, which cannot set headers,
// pass the session token as ?token=.
func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(common.AuthorizationHeaderName) == "" {
			if t := r.URL.Query().Get("token"); t != "" {
				r = r.Clone(r.Context())
				r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+t)
			}
		}
		next.ServeHTTP(w, r)
	})
}
