// Package session holds the client identity: who we are to the coordinator
// and how to reach it. Non-secret identity fields persist in the local
// sqlite database; the device secret lives only in process memory for the
// lifetime of the run, and the access token is memory-only and never
// persisted anywhere.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the full identity/credential tuple.
type Session struct {
	BaseURL        string
	PrincipalID    string
	ClientDeviceID string
	DeviceSecret   string
	AccessToken    string
}

// CanConnect reports whether all four identity fields required by the token
// exchange are present.
func (s Session) CanConnect() bool {
	return s.BaseURL != "" && s.PrincipalID != "" && s.ClientDeviceID != "" && s.DeviceSecret != ""
}

// TokenExpiry extracts the exp claim from an access token without verifying
// its signature. Used for logging only; the coordinator remains the
// authority on token validity. Malformed tokens yield the zero time.
func TokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
