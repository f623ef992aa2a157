package config

import (
	"time"
)

const (
	apiBaseURLVar  = "CONSOLE_API_URL"
	httpTimeoutVar = "HTTP_TIMEOUT"

	defaultAPIBaseURL  = "http://localhost:8080"
	defaultHTTPTimeout = 30 * time.Second
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the base URL of the platform API. All resource
// paths (/auth/login, /agents, /campaigns/{id}, ...) are relative to it.
func (API) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, defaultAPIBaseURL)
}

func (API) GetHTTPTimeout() time.Duration {
	return getDurationEnv(httpTimeoutVar, defaultHTTPTimeout)
}

func getDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
