package config

import (
	"net/netip"
	"time"
)

type SecurityConfig interface {
	GetSessionSecret() string
	GetSessionTTL() time.Duration
	GetSessionCookieName() string
	GetRequestTimeout() time.Duration
	GetLoginRatePerSecond() int
	GetLoginRateBurst() int
	GetTrustedProxies() []netip.Prefix
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionSecret returns the HMAC secret used to sign session tokens.
// An empty value makes the server generate a random secret at start up,
// which invalidates every session on restart.
func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "")
}

func (Security) GetSessionTTL() time.Duration {
	return GetDurationEnv("SESSION_TTL", 24*time.Hour)
}

func (Security) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE", "hr_session")
}

func (Security) GetRequestTimeout() time.Duration {
	return GetDurationEnv("REQUEST_TIMEOUT", 10*time.Second)
}

func (Security) GetLoginRatePerSecond() int {
	return GetIntEnv("LOGIN_RATE_PER_SEC", 5)
}

func (Security) GetLoginRateBurst() int {
	return GetIntEnv("LOGIN_RATE_BURST", 10)
}

// GetTrustedProxies reads TRUSTED_PROXIES, a comma separated list of
// addresses or CIDR ranges whose X-Forwarded-For header is believed.
// Entries that do not parse are skipped. Empty means no proxy is trusted.
func (Security) GetTrustedProxies() []netip.Prefix {
	var prefixes []netip.Prefix
	for _, raw := range splitList(GetEnv("TRUSTED_PROXIES", "")) {
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(raw); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}
