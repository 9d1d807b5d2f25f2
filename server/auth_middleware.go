package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/authz"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyIdentity stores the authz.Identity of the caller
	ContextKeyIdentity ContextKey = "identity"
	// ContextKeyAccount stores the caller's freshly loaded account
	ContextKeyAccount ContextKey = "account"
)

// RequireAuth resolves the session token (Authorization header first, then
// the session cookie) into an identity. Account and tenant state is
// re-checked on every request.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := s.sessionToken(r)
			if raw == "" {
				writeError(w, errors.ErrUnauthenticated)
				return
			}
			account, identity, err := s.auth.CurrentIdentity(r.Context(), raw)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			ctx = context.WithValue(ctx, ContextKeyAccount, account)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireSuperAdmin must be chained after RequireAuth.
func (s *Server) RequireSuperAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := authz.RequireSuperAdmin(identityFrom(r)); err != nil {
				writeError(w, err)
				return
			}
			next(w, r)
		}
	}
}

func (s *Server) sessionToken(r *http.Request) string {
	// A bearer header wins; any other scheme belongs to someone else.
	if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	if cookie, err := r.Cookie(s.config.GetSessionCookieName()); err == nil {
		return cookie.Value
	}
	return ""
}

// identityFrom returns the zero Identity, which every authz check denies,
// when RequireAuth did not run.
func identityFrom(r *http.Request) authz.Identity {
	identity, _ := r.Context().Value(ContextKeyIdentity).(authz.Identity)
	return identity
}

func accountFrom(r *http.Request) *accounts.Account {
	account, _ := r.Context().Value(ContextKeyAccount).(*accounts.Account)
	return account
}

func (s *Server) setSessionCookie(w http.ResponseWriter, raw string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    raw,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	s.setSessionCookie(w, "", -1)
}
