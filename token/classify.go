package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// DefaultSkew is the renewal buffer applied before a token's real expiry.
const DefaultSkew = 300 * time.Second

// Classification is the freshness of an access token at a point in time.
type Classification int

const (
	Malformed Classification = iota
	Expired
	ExpiringSoon
	Valid
)

func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case ExpiringSoon:
		return "expiring_soon"
	case Expired:
		return "expired"
	default:
		return "malformed"
	}
}

// NeedsRenewal is true for tokens that should be refreshed before use.
func (c Classification) NeedsRenewal() bool {
	return c == Expired || c == ExpiringSoon
}

// Claims are the unverified claims the client cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ParseClaims decodes a bearer token's claims without verifying its signature.
// The client never holds the signing key; the server remains the authority.
func ParseClaims(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("empty token")
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp == nil {
		return nil, fmt.Errorf("token missing exp claim")
	}

	c := &Claims{ExpiresAt: exp.Time}
	c.Subject, _ = claims.GetSubject()
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

// ExpiresAt returns the token's exp claim, or the zero time when it cannot be read.
func ExpiresAt(rawToken string) time.Time {
	c, err := ParseClaims(rawToken)
	if err != nil {
		return time.Time{}
	}
	return c.ExpiresAt
}

// Classify reports whether rawToken is usable at now. Decoding failures map to
// Malformed; it never panics and has no side effects.
func Classify(rawToken string, now time.Time, skew time.Duration) Classification {
	claims, err := ParseClaims(rawToken)
	if err != nil {
		return Malformed
	}
	exp := claims.ExpiresAt.Unix()
	switch {
	case exp <= now.Unix():
		return Expired
	case exp <= now.Add(skew).Unix():
		return ExpiringSoon
	default:
		return Valid
	}
}
