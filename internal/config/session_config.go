package config

import "time"

type SessionConfig interface {
	GetTokenSkew() time.Duration
	GetMaxSessionAge() time.Duration
	GetRefreshTimeout() time.Duration
	GetLogoutTimeout() time.Duration
	GetRequestTimeout() time.Duration
	GetLegacySingleToken() bool
}

type Session struct {
	env EnvVars
}

var _ SessionConfig = Session{}

// GetTokenSkew is how long before expiry a token is treated as needing renewal.
func (s Session) GetTokenSkew() time.Duration {
	return s.env.getDuration("TOKEN_SKEW", 5*time.Minute)
}

// GetMaxSessionAge bounds how old a persisted session may be and still be restored.
func (s Session) GetMaxSessionAge() time.Duration {
	return s.env.getDuration("SESSION_MAX_AGE", 7*24*time.Hour) // 7 days
}

func (s Session) GetRefreshTimeout() time.Duration {
	return s.env.getDuration("REFRESH_TIMEOUT", 10*time.Second)
}

func (s Session) GetLogoutTimeout() time.Duration {
	return s.env.getDuration("LOGOUT_TIMEOUT", 5*time.Second)
}

func (s Session) GetRequestTimeout() time.Duration {
	return s.env.getDuration("REQUEST_TIMEOUT", 30*time.Second)
}

// GetLegacySingleToken accepts login responses carrying a single "token" instead of a pair.
func (s Session) GetLegacySingleToken() bool {
	return s.env.getBool("LEGACY_SINGLE_TOKEN", false)
}
