package config

type SystemConfig interface {
	GetSuperAdminEmail() string
	GetSuperAdminPassword() string
}

type System struct{}

var _ SystemConfig = System{}

// GetSuperAdminEmail returns the bootstrap super admin email. When empty the
// server derives one from the base URL host.
func (System) GetSuperAdminEmail() string {
	return GetEnv("SUPERADMIN_EMAIL", "")
}

func (System) GetSuperAdminPassword() string {
	return GetEnv("SUPERADMIN_PASSWORD", "")
}
