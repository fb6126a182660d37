package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"bottarot-be/internal/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func signToken(t *testing.T, userID uuid.UUID, email string, exp time.Time) string {
	t.Helper()
	claims := AccessClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestSignInWithPassword(t *testing.T) {
	userID := uuid.New()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signToken(t, userID, "seer@example.com", exp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "seer@example.com", body["email"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  access,
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", testSecret, time.Second)
	session, err := c.SignInWithPassword(context.Background(), "seer@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, userID, session.User.Id)
	assert.Equal(t, "seer@example.com", session.User.Email)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	assert.True(t, session.ExpiresAt.Equal(exp))
}

func TestSignInWithPassword_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", testSecret, time.Second)
	_, err := c.SignInWithPassword(context.Background(), "a@b.c", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
	assert.False(t, IsConnectivityError(err))
}

func TestSignUp_WithoutSession(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    userID.String(),
			"email": "new@example.com",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", testSecret, time.Second)
	res, err := c.SignUp(context.Background(), "new@example.com", "pw")
	require.NoError(t, err)

	assert.Nil(t, res.Session)
	assert.Equal(t, userID, res.User.Id)
}

func TestSignOut_SendsUserToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		assert.Equal(t, "Bearer user-access", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon", testSecret, time.Second)
	require.NoError(t, c.SignOut(context.Background(), "user-access"))
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient("https://project.supabase.co", "anon", testSecret, time.Second)

	raw, verifier, err := c.AuthorizeURL(entity.OAuthProviderGoogle, "https://app.example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, verifier)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "https://app.example.com", u.Query().Get("redirect_to"))
	assert.NotEmpty(t, u.Query().Get("code_challenge"))

	_, _, err = c.AuthorizeURL(entity.OAuthProvider("myspace"), "")
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	token := signToken(t, uuid.New(), "x@y.z", time.Now().Add(time.Hour))

	c := NewClient("http://unused", "anon", "another-secret", time.Second)
	_, err := c.ParseAccessToken(token)
	assert.Error(t, err)

	// without a configured secret the claims are read as-is
	c = NewClient("http://unused", "anon", "", time.Second)
	claims, err := c.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "x@y.z", claims.Email)
}

func TestIsConnectivityError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "anon", testSecret, 200*time.Millisecond)
	_, err := c.RefreshSession(context.Background(), "r")
	require.Error(t, err)
	assert.True(t, IsConnectivityError(err))

	assert.True(t, IsConnectivityError(context.DeadlineExceeded))
	assert.False(t, IsConnectivityError(nil))
	assert.False(t, IsConnectivityError(errors.New("boom")))
}
