package session

import (
	"time"

	"github.com/jrsteele09/go-admin-session/users"
)

// InitState is where startup reconciliation ended.
type InitState int

const (
	// InitEmpty means nothing was persisted.
	InitEmpty InitState = iota
	// InitCleared means the persisted session was too old or could not be recovered.
	InitCleared
	// InitProfileOK means the restored tokens were accepted as-is.
	InitProfileOK
	// InitRefreshedProfileOK means the tokens had to be renewed first.
	InitRefreshedProfileOK
	// InitRefreshed means renewal worked but the profile still could not be loaded.
	InitRefreshed
)

func (s InitState) String() string {
	switch s {
	case InitEmpty:
		return "empty"
	case InitCleared:
		return "cleared"
	case InitProfileOK:
		return "profile_ok"
	case InitRefreshedProfileOK:
		return "refreshed_profile_ok"
	case InitRefreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	User            *users.Profile
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IssuedAt        time.Time
	Loading         bool
	Err             string
}

// Plan is the loaded profile's plan, or free when no profile is loaded.
func (s Snapshot) Plan() users.PlanType {
	if s.User == nil || s.User.Plan == "" {
		return users.PlanFree
	}
	return s.User.Plan
}

// tokenPair is the wire form of a credential pair.
type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// authResponse covers login, register and refresh replies.
type authResponse struct {
	Token  string         `json:"token,omitempty"`
	Tokens *tokenPair     `json:"tokens,omitempty"`
	User   *users.Profile `json:"user,omitempty"`
}
