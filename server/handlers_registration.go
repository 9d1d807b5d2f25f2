package server

import (
	"net/http"

	"github.com/jrsteele09/go-hr-tenancy/registration"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

func (s *Server) SubmitRegistrationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub registration.Submission
		if err := decodeJSON(w, r, &sub); err != nil {
			writeError(w, err)
			return
		}
		res, err := s.registration.Submit(r.Context(), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		s.metrics.Registration("submitted")
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) ListRegistrationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := s.registration.ListPending(r.Context(), identityFrom(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"registrations": pending})
	}
}

type approveRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) ApproveRegistrationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req approveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		plan, ok := tenants.ParsePlan(req.Plan)
		if !ok {
			writeError(w, tenants.ErrInvalidPlan)
			return
		}
		tenantID, err := s.registration.Approve(r.Context(), identityFrom(r), r.PathValue("id"), plan)
		if err != nil {
			writeError(w, err)
			return
		}
		s.metrics.Registration("approved")
		writeJSON(w, http.StatusOK, map[string]string{"tenant_id": tenantID})
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectRegistrationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rejectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.registration.Reject(r.Context(), identityFrom(r), r.PathValue("id"), req.Reason); err != nil {
			writeError(w, err)
			return
		}
		s.metrics.Registration("rejected")
		w.WriteHeader(http.StatusNoContent)
	}
}
