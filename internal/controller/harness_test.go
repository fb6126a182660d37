package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bottarot-be/internal/authstate"
	"bottarot-be/internal/chatlist"
	"bottarot-be/internal/clientsession"
	"bottarot-be/internal/entity"
	"bottarot-be/internal/guard"
	"bottarot-be/internal/localstate"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/internal/pkg/serverutils"
	"bottarot-be/internal/repository/specification"
	"bottarot-be/internal/service"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/supabase"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeSession stands in for the per-client Supabase session.
type fakeSession struct {
	mu         sync.Mutex
	user       *entity.User
	password   string
	signOutErr error
	cleared    bool
}

func (f *fakeSession) GetSession(context.Context) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return nil, nil
	}
	return &entity.Session{AccessToken: "token", User: *f.user}, nil
}

func (f *fakeSession) SignInWithPassword(_ context.Context, email, password string) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if password != f.password {
		return nil, &supabase.APIError{StatusCode: http.StatusBadRequest, Code: "invalid_grant", Message: "Invalid login credentials"}
	}
	f.user = &entity.User{Id: uuid.New(), Email: email}
	return &entity.Session{AccessToken: "token", User: *f.user}, nil
}

func (f *fakeSession) SignInWithOAuth(context.Context, entity.OAuthProvider, string) (*entity.OAuthRedirect, error) {
	return nil, supabase.ErrInvalidProvider
}

func (f *fakeSession) ExchangeCode(context.Context, string) (*entity.Session, error) {
	return nil, supabase.ErrMissingVerifier
}

func (f *fakeSession) SignUp(context.Context, string, string) (*supabase.SignUpResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeSession) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.user = nil
	return nil
}

func (f *fakeSession) ClearLocalSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	f.user = nil
}

func (f *fakeSession) OnAuthStateChange(func(events.AuthChange)) (func(), error) {
	return func() {}, nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]entity.Profile
}

func (p *fakeProfiles) Create(_ context.Context, pr *entity.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[pr.Id] = *pr
	return nil
}

func (p *fakeProfiles) Update(_ context.Context, pr *entity.Profile) error {
	return p.Create(context.Background(), pr)
}

func (p *fakeProfiles) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range specs {
		if byID, ok := s.(specification.ByID); ok {
			if pr, ok := p.profiles[byID.ID]; ok {
				return &pr, nil
			}
		}
	}
	return nil, nil
}

func (p *fakeProfiles) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.profiles[id]
	return ok, nil
}

type offlinePermissions struct{}

func (offlinePermissions) GetSubscription(context.Context, string) (*entity.Subscription, error) {
	return nil, errors.New("offline")
}
func (offlinePermissions) GetReadingPermissions(context.Context, string) (*entity.ReadingPermissions, error) {
	return nil, errors.New("offline")
}
func (offlinePermissions) RecordReading(context.Context, string, bool) error { return nil }
func (offlinePermissions) RecordQuestion(context.Context, entity.QuestionRecord) error {
	return nil
}

type fakeChats struct {
	mu        sync.Mutex
	items     []entity.ChatSummary
	deleteErr error
}

func (c *fakeChats) List(context.Context, uuid.UUID) ([]entity.ChatSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.ChatSummary(nil), c.items...), nil
}
func (c *fakeChats) Delete(context.Context, uuid.UUID, uuid.UUID) error { return c.deleteErr }
func (c *fakeChats) Rename(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}
func (c *fakeChats) ToggleFavorite(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type harness struct {
	t        *testing.T
	app      *fiber.App
	registry *clientsession.Registry
	profiles *fakeProfiles
	chats    *fakeChats

	mu       sync.Mutex
	sessions map[string]*fakeSession
}

func newHarness(t *testing.T) *harness {
	log := logger.NewNopLogger()
	h := &harness{
		t:        t,
		profiles: &fakeProfiles{profiles: map[uuid.UUID]entity.Profile{}},
		chats:    &fakeChats{},
		sessions: map[string]*fakeSession{},
	}
	backend := localstate.NewMemoryBackend(time.Hour)

	h.registry = clientsession.NewRegistry(time.Hour, func(clientID string) (*clientsession.ClientSession, error) {
		sess := h.session(clientID)
		return &clientsession.ClientSession{
			ID: clientID,
			Auth: authstate.NewStore(sess, h.profiles, offlinePermissions{}, log, authstate.Config{
				SessionTimeout:    time.Second,
				PermissionTimeout: time.Second,
			}),
			Chats:   chatlist.NewStore(h.chats, log),
			Local:   localstate.New(backend, clientID, log),
			Session: sess,
		}, nil
	}, log)

	analytics := service.NewAnalyticsService(nil, log)
	g := guard.New(time.Second, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api", serverutils.ClientSessionMiddleware(h.registry, serverutils.ClientSessionConfig{
		CookieName: "bt_sid",
		IdleTTL:    time.Hour,
	}))
	requireUser := serverutils.RequireUser(time.Second)

	NewAuthController(h.registry, g, analytics, AuthControllerConfig{
		ClientURL: "http://spa.test",
		BaseURL:   "http://api.test",
		StateWait: time.Second,
	}).RegisterRoutes(api)
	NewNavigationController(h.registry, g, analytics).RegisterRoutes(api)
	NewChatController().RegisterRoutes(api, requireUser)
	NewProfileController(service.NewProfileService(h.profiles, nil, analytics, log)).RegisterRoutes(api, requireUser)
	NewLocalController(service.NewLocaleService(h.profiles, analytics, log), analytics).RegisterRoutes(api)

	h.app = app
	return h
}

// session returns the fake Supabase session of clientID, creating it on demand.
func (h *harness) session(clientID string) *fakeSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[clientID]
	if !ok {
		s = &fakeSession{password: "secret"}
		h.sessions[clientID] = s
	}
	return s
}

// signedIn prepares clientID as a restored session of a user, registered or not.
func (h *harness) signedIn(clientID string, registered bool) *entity.User {
	user := &entity.User{Id: uuid.New(), Email: "luna@example.com"}
	h.session(clientID).user = user
	if registered {
		h.profiles.profiles[user.Id] = entity.Profile{Id: user.Id, Name: "Luna", Language: "it"}
	}
	return user
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *harness) do(method, path, clientID, body string, headers ...string) (*http.Response, envelope) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if clientID != "" {
		req.Header.Set(serverutils.ClientSessionHeader, clientID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := h.app.Test(req, 5000)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
