package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-hr-tenancy/authz"
	"github.com/jrsteele09/go-hr-tenancy/registration"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

func (s *Server) CreateTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var nt registration.NewTenant
		if err := decodeJSON(w, r, &nt); err != nil {
			writeError(w, err)
			return
		}
		res, err := s.registration.CreateTenant(r.Context(), identityFrom(r), nt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) ListTenantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeError(w, err)
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			writeError(w, err)
			return
		}
		list, total, err := s.lifecycle.List(r.Context(), identityFrom(r), offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tenants": list, "total": total})
	}
}

func (s *Server) GetTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := s.lifecycle.Get(r.Context(), identityFrom(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	}
}

func (s *Server) UpdateTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var upd tenants.Update
		if err := decodeJSON(w, r, &upd); err != nil {
			writeError(w, err)
			return
		}
		tenant, err := s.lifecycle.Update(r.Context(), identityFrom(r), r.PathValue("id"), upd)
		if err != nil {
			writeError(w, err)
			return
		}
		if upd.Status != nil {
			s.metrics.TenantTransition(string(*upd.Status))
		}
		writeJSON(w, http.StatusOK, tenant)
	}
}

func (s *Server) DeleteTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.lifecycle.Delete(r.Context(), identityFrom(r), r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		s.metrics.TenantTransition("Deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ActivateTenantHandler() http.HandlerFunc {
	return s.transitionHandler(s.lifecycle.Activate)
}

func (s *Server) SuspendTenantHandler() http.HandlerFunc {
	return s.transitionHandler(s.lifecycle.Suspend)
}

type transitionFunc func(ctx context.Context, caller authz.Identity, tenantID string) (*tenants.Tenant, error)

func (s *Server) transitionHandler(transition transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := transition(r.Context(), identityFrom(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		s.metrics.TenantTransition(string(tenant.Status))
		writeJSON(w, http.StatusOK, tenant)
	}
}
