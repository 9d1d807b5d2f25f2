package config

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	StoreConfig
	NotifyConfig
	SystemConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Store
	Notify
	System
}

func New() Config {
	return mainConfig{}
}
