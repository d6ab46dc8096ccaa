package config

import (
	"strconv"
	"strings"
	"time"
)

const (
	apiBaseVar  = "API_BASE"
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	logLevelVar = "LOG_LEVEL"
)

type EnvVars struct {
	lookup LookupFunc
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.get(appNameVar, "CRM Admin")
}

// GetAPIBase returns the REST API base URL without a trailing slash
// (e.g., "http://localhost:8080/api").
func (e EnvVars) GetAPIBase() string {
	return strings.TrimRight(e.get(apiBaseVar, "http://localhost:8080/api"), "/")
}

func (e EnvVars) GetEnv() string {
	return e.get(envVar, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.get(logLevelVar, "info")
}

func (e EnvVars) get(envVar, defaultValue string) string {
	value := ""
	if e.lookup != nil {
		value = e.lookup(envVar)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func (e EnvVars) getDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := e.get(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func (e EnvVars) getBool(envVar string, defaultValue bool) bool {
	value := e.get(envVar, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
