package config

import "strings"

// Cors answers the browser preflight served on "OPTIONS /api/" and the
// per-response Allow-Origin check in the API middleware. Credentials are
// only allowed for listed origins since the session travels in a cookie.
type Cors struct{}

var _ CorsConfig = Cors{}

// AllowedOrigins is a set of exact origins, e.g. "https://hr.example.com".
// The single entry "*" allows any origin without credentials.
type AllowedOrigins map[string]struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins reads the comma separated CORS_ORIGINS list.
func (Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range splitList(GetEnv("CORS_ORIGINS", "http://localhost:3000")) {
		origins[o] = struct{}{}
	}
	return origins
}

// GetAllowedMethods covers every verb registered under /api/v1.
func (Cors) GetAllowedMethods() string {
	return GetEnv("CORS_METHODS", "GET, POST, PATCH, DELETE, OPTIONS")
}

// GetAllowedHeaders must include Authorization for bearer clients.
func (Cors) GetAllowedHeaders() string {
	return GetEnv("CORS_HEADERS", "Content-Type, Authorization")
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
