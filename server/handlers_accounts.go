package server

import (
	"net/http"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/members"
)

// ListAccountsHandler serves ?tenant=&role=&offset=&limit=. The tenant
// filter is only honoured for superadmins.
func (s *Server) ListAccountsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := accounts.Filter{TenantID: q.Get("tenant")}
		if raw := q.Get("role"); raw != "" {
			role, ok := accounts.ParseRole(raw)
			if !ok {
				writeError(w, errors.Invalid("unknown role %q", raw))
				return
			}
			filter.Role = role
		}
		var err error
		if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
			writeError(w, err)
			return
		}
		if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
			writeError(w, err)
			return
		}
		list, err := s.members.List(r.Context(), identityFrom(r), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": list})
	}
}

func (s *Server) AddAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var nm members.NewMember
		if err := decodeJSON(w, r, &nm); err != nil {
			writeError(w, err)
			return
		}
		res, err := s.members.AddTeammate(r.Context(), identityFrom(r), nm)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) GetAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.members.Get(r.Context(), identityFrom(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

// UpdateAccountHandler applies display_name, role and is_active together;
// when one of them is refused the account is left untouched.
func (s *Server) UpdateAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch members.Patch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, err)
			return
		}
		account, err := s.members.Update(r.Context(), identityFrom(r), r.PathValue("id"), patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func (s *Server) DeleteAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.members.Remove(r.Context(), identityFrom(r), r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type passwordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordChange
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.members.ChangePassword(r.Context(), identityFrom(r), req.CurrentPassword, req.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
