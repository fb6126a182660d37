package entity

import (
	"time"

	"github.com/google/uuid"
)

type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEvent = "USER_UPDATED"
)

type User struct {
	Id    uuid.UUID
	Email string
}

// Session is the credential bundle issued by the auth service.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the access token is past (or within leeway of) its expiry.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.ExpiresAt)
}

type OAuthProvider string

const (
	OAuthProviderGoogle   OAuthProvider = "google"
	OAuthProviderFacebook OAuthProvider = "facebook"
)

func (p OAuthProvider) Valid() bool {
	return p == OAuthProviderGoogle || p == OAuthProviderFacebook
}

// OAuthRedirect is where the browser must go to finish an OAuth sign-in.
type OAuthRedirect struct {
	Provider OAuthProvider
	URL      string
}
