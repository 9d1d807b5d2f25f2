package server

// Route path constants
const (
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	RouteRegistrations       = "/api/v1/registrations"
	RouteRegistrationApprove = "/api/v1/registrations/{id}/approve"
	RouteRegistrationReject  = "/api/v1/registrations/{id}/reject"

	RouteAuthLogin  = "/api/v1/auth/login"
	RouteAuthLogout = "/api/v1/auth/logout"
	RouteAuthMe     = "/api/v1/auth/me"

	RouteTenants        = "/api/v1/tenants"
	RouteTenant         = "/api/v1/tenants/{id}"
	RouteTenantActivate = "/api/v1/tenants/{id}/activate"
	RouteTenantSuspend  = "/api/v1/tenants/{id}/suspend"

	RouteAccounts        = "/api/v1/accounts"
	RouteAccount         = "/api/v1/accounts/{id}"
	RouteAccountPassword = "/api/v1/accounts/me/password"
)
