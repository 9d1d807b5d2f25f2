package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())

	// Registration
	s.api("POST "+RouteRegistrations, s.SubmitRegistrationHandler())
	s.api("GET "+RouteRegistrations, s.ListRegistrationsHandler(), s.RequireAuth(), s.RequireSuperAdmin())
	s.api("POST "+RouteRegistrationApprove, s.ApproveRegistrationHandler(), s.RequireAuth(), s.RequireSuperAdmin())
	s.api("POST "+RouteRegistrationReject, s.RejectRegistrationHandler(), s.RequireAuth(), s.RequireSuperAdmin())

	// Sessions
	s.api("POST "+RouteAuthLogin, s.LoginHandler(), s.RateLimitMiddleware(s.loginLimiter))
	s.api("POST "+RouteAuthLogout, s.LogoutHandler())
	s.api("GET "+RouteAuthMe, s.MeHandler(), s.RequireAuth())

	// Tenants
	s.api("POST "+RouteTenants, s.CreateTenantHandler(), s.RequireAuth(), s.RequireSuperAdmin())
	s.api("GET "+RouteTenants, s.ListTenantsHandler(), s.RequireAuth(), s.RequireSuperAdmin())
	s.api("GET "+RouteTenant, s.GetTenantHandler(), s.RequireAuth())
	s.api("PATCH "+RouteTenant, s.UpdateTenantHandler(), s.RequireAuth(), s.RequireSuperAdmin())
	s.api("DELETE "+RouteTenant, s.DeleteTenantHandler(), s.RequireAuth(), s.RequireSuperAdmin())
	s.api("POST "+RouteTenantActivate, s.ActivateTenantHandler(), s.RequireAuth(), s.RequireSuperAdmin())
	s.api("POST "+RouteTenantSuspend, s.SuspendTenantHandler(), s.RequireAuth(), s.RequireSuperAdmin())

	// Accounts
	s.api("GET "+RouteAccounts, s.ListAccountsHandler(), s.RequireAuth())
	s.api("POST "+RouteAccounts, s.AddAccountHandler(), s.RequireAuth())
	s.api("GET "+RouteAccount, s.GetAccountHandler(), s.RequireAuth())
	s.api("PATCH "+RouteAccount, s.UpdateAccountHandler(), s.RequireAuth())
	s.api("DELETE "+RouteAccount, s.DeleteAccountHandler(), s.RequireAuth())
	s.api("POST "+RouteAccountPassword, s.ChangePasswordHandler(), s.RequireAuth())

	// Preflight for every API path.
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware))
}

// api registers pattern behind the standard API middleware followed by mw.
func (s *Server) api(pattern string, handler http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) {
	s.RegisterRouteHandler(pattern, ChainMiddleware(handler, s.APIMiddleware(pattern, mw...)...))
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
