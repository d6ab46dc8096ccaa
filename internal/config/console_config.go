package config

import "strings"

type ConsoleConfig interface {
	GetConsoleAddr() string
	GetDevAPIAddr() string
	GetPublicRoutes() []string
	GetLoginRoute() string
	GetLandingRoute() string
}

type Console struct {
	env EnvVars
}

var _ ConsoleConfig = Console{}

var defaultPublicRoutes = []string{"/auth/login", "/auth/register", "/auth/forgot-password", "/auth/reset-password"}

func (c Console) GetConsoleAddr() string {
	return c.env.get("CONSOLE_ADDR", "127.0.0.1:3000")
}

func (c Console) GetDevAPIAddr() string {
	return c.env.get("DEVAPI_ADDR", "127.0.0.1:8080")
}

// GetPublicRoutes returns the exact paths reachable without a session.
func (c Console) GetPublicRoutes() []string {
	value := c.env.get("PUBLIC_ROUTES", "")
	if value == "" {
		return append([]string(nil), defaultPublicRoutes...)
	}
	var routes []string
	for _, r := range strings.Split(value, ",") {
		if r = strings.TrimSpace(r); r != "" {
			routes = append(routes, r)
		}
	}
	return routes
}

func (c Console) GetLoginRoute() string {
	return c.env.get("LOGIN_ROUTE", "/auth/login")
}

func (c Console) GetLandingRoute() string {
	return c.env.get("LANDING_ROUTE", "/")
}
