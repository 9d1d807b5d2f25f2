package server

import (
	"net/http"

	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			s.metrics.LoginAttempt(string(errors.KindOf(err)))
			writeError(w, err)
			return
		}
		s.metrics.LoginAttempt("success")
		s.setSessionCookie(w, res.Token, int(s.tokens.TTL().Seconds()))
		writeJSON(w, http.StatusOK, res)
	}
}

// LogoutHandler always clears the cookie; a missing or stale token is not
// an error.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := s.sessionToken(r); raw != "" {
			if err := s.auth.Logout(r.Context(), raw); err != nil {
				writeError(w, err)
				return
			}
		}
		s.clearSessionCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"account":  accountFrom(r),
			"identity": identityFrom(r),
		})
	}
}
