// Package supabase is a small client for the GoTrue REST endpoints the
// backend needs: password and PKCE sign-in, sign-up, refresh and sign-out.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bottarot-be/internal/entity"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const clientInfo = "bottarot-be"

type Client struct {
	baseURL    string
	anonKey    string
	jwtSecret  []byte
	httpClient *http.Client
}

func NewClient(baseURL, anonKey, jwtSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		jwtSecret:  []byte(jwtSecret),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type errorResponse struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
	Msg              string      `json:"msg"`
	Message          string      `json:"message"`
}

// SignUpResult carries the new user; Session is nil when the project requires
// e-mail confirmation before the first sign-in.
type SignUpResult struct {
	User    entity.User
	Session *entity.Session
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	var res tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &res); err != nil {
		return nil, err
	}
	return c.toSession(&res)
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*entity.Session, error) {
	var res tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &res); err != nil {
		return nil, err
	}
	return c.toSession(&res)
}

func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*entity.Session, error) {
	var res tokenResponse
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, &res); err != nil {
		return nil, err
	}
	return c.toSession(&res)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	var raw json.RawMessage
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &raw); err != nil {
		return nil, err
	}

	// With auto-confirm GoTrue answers with a full session, otherwise with the bare user
	var res tokenResponse
	if err := json.Unmarshal(raw, &res); err == nil && res.AccessToken != "" {
		session, err := c.toSession(&res)
		if err != nil {
			return nil, err
		}
		return &SignUpResult{User: session.User, Session: session}, nil
	}

	var u userResponse
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("signup returned invalid user id %q: %w", u.ID, err)
	}
	return &SignUpResult{User: entity.User{Id: id, Email: u.Email}}, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// AuthorizeURL builds the PKCE authorize URL for an OAuth provider. The
// returned verifier must be kept until the callback is exchanged.
func (c *Client) AuthorizeURL(provider entity.OAuthProvider, redirectTo string) (string, string, error) {
	if !provider.Valid() {
		return "", "", ErrInvalidProvider
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.baseURL + "/auth/v1/authorize",
			TokenURL:  c.baseURL + "/auth/v1/token?grant_type=pkce",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL("",
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("provider", string(provider)),
		oauth2.SetAuthURLParam("redirect_to", redirectTo),
	)
	return authURL, verifier, nil
}

func (c *Client) toSession(res *tokenResponse) (*entity.Session, error) {
	claims, err := c.ParseAccessToken(res.AccessToken)
	if err != nil {
		return nil, err
	}

	subject := claims.Subject
	if subject == "" {
		subject = res.User.ID
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("access token subject %q: %w", subject, err)
	}

	email := claims.Email
	if email == "" {
		email = res.User.Email
	}

	var expiresAt time.Time
	switch {
	case claims.ExpiresAt != nil:
		expiresAt = claims.ExpiresAt.Time
	case res.ExpiresAt > 0:
		expiresAt = time.Unix(res.ExpiresAt, 0)
	case res.ExpiresIn > 0:
		expiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}

	return &entity.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         entity.User{Id: id, Email: email},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Info", clientInfo)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, redactQuery(path), err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, content)
	}

	if out == nil || len(content) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, content []byte) error {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	var e errorResponse
	if err := json.Unmarshal(content, &e); err != nil {
		return apiErr
	}

	switch {
	case e.ErrorCode != "":
		apiErr.Code = e.ErrorCode
	case e.Error != "":
		apiErr.Code = e.Error
	}
	for _, msg := range []string{e.ErrorDescription, e.Msg, e.Message} {
		if msg != "" {
			apiErr.Message = msg
			break
		}
	}
	return apiErr
}

func redactQuery(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	return u.Path
}
