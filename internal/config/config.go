package config

type Config interface {
	EnvConfig
	APIConfig
	PollingConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetStateFolder() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	API
	Polling
}

func New() Config {
	return mainConfig{}
}
