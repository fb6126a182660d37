package clientsession

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bottarot-be/internal/authstate"
	"bottarot-be/internal/chatlist"
	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/supabase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	user         *entity.User
	unsubscribed atomic.Int32
}

func (a *stubAuth) GetSession(context.Context) (*entity.Session, error) {
	if a.user == nil {
		return nil, nil
	}
	return &entity.Session{AccessToken: "t", User: *a.user}, nil
}
func (a *stubAuth) SignInWithPassword(context.Context, string, string) (*entity.Session, error) {
	return nil, errors.New("not used")
}
func (a *stubAuth) SignInWithOAuth(context.Context, entity.OAuthProvider, string) (*entity.OAuthRedirect, error) {
	return nil, errors.New("not used")
}
func (a *stubAuth) ExchangeCode(context.Context, string) (*entity.Session, error) {
	return nil, errors.New("not used")
}
func (a *stubAuth) SignUp(context.Context, string, string) (*supabase.SignUpResult, error) {
	return nil, errors.New("not used")
}
func (a *stubAuth) SignOut(context.Context) error { return nil }
func (a *stubAuth) ClearLocalSession()            {}
func (a *stubAuth) OnAuthStateChange(func(events.AuthChange)) (func(), error) {
	return func() { a.unsubscribed.Add(1) }, nil
}

type noProfile struct{}

func (noProfile) Exists(context.Context, uuid.UUID) (bool, error) { return false, nil }

type downPermissions struct{}

func (downPermissions) GetSubscription(context.Context, string) (*entity.Subscription, error) {
	return nil, errors.New("down")
}
func (downPermissions) GetReadingPermissions(context.Context, string) (*entity.ReadingPermissions, error) {
	return nil, errors.New("down")
}
func (downPermissions) RecordReading(context.Context, string, bool) error { return errors.New("down") }
func (downPermissions) RecordQuestion(context.Context, entity.QuestionRecord) error {
	return errors.New("down")
}

type fixture struct {
	mu      sync.Mutex
	built   int
	auths   map[string]*stubAuth
	userFor map[string]*entity.User
}

func (f *fixture) factory(clientID string) (*ClientSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built++
	auth := &stubAuth{user: f.userFor[clientID]}
	f.auths[clientID] = auth
	log := logger.NewNopLogger()
	store := authstate.NewStore(auth, noProfile{}, downPermissions{}, log, authstate.Config{
		SessionTimeout:    time.Second,
		PermissionTimeout: time.Second,
	})
	return &ClientSession{ID: clientID, Auth: store, Chats: chatlist.NewStore(nil, log)}, nil
}

func newFixture() *fixture {
	return &fixture{auths: map[string]*stubAuth{}, userFor: map[string]*entity.User{}}
}

func TestGet_CreatesOnceAndInitializes(t *testing.T) {
	f := newFixture()
	reg := NewRegistry(time.Minute, f.factory, logger.NewNopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Get(context.Background(), "tab-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cs, err := reg.Get(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.built)
	assert.Equal(t, 1, reg.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, cs.Auth.WaitInitialized(ctx))
	assert.False(t, cs.Auth.IsLoggedIn())
}

func TestGet_FactoryError(t *testing.T) {
	reg := NewRegistry(time.Minute, func(string) (*ClientSession, error) {
		return nil, errors.New("boom")
	}, logger.NewNopLogger())

	_, err := reg.Get(context.Background(), "tab-1")
	assert.Error(t, err)
	assert.Zero(t, reg.Count())
}

func TestDrop_ClosesSession(t *testing.T) {
	f := newFixture()
	reg := NewRegistry(time.Minute, f.factory, logger.NewNopLogger())
	_, err := reg.Get(context.Background(), "tab-1")
	require.NoError(t, err)

	reg.Drop("tab-1")

	assert.Zero(t, reg.Count())
	assert.Equal(t, int32(1), f.auths["tab-1"].unsubscribed.Load())
}

func TestIdleSessionsExpire(t *testing.T) {
	f := newFixture()
	reg := NewRegistry(50*time.Millisecond, f.factory, logger.NewNopLogger())
	_, err := reg.Get(context.Background(), "tab-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.auths["tab-1"].unsubscribed.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, reg.Count())
}

func TestMarkRegistered_OnlyMatchingUser(t *testing.T) {
	f := newFixture()
	luna := &entity.User{Id: uuid.New(), Email: "luna@example.com"}
	f.userFor["tab-a"] = luna
	f.userFor["tab-b"] = luna
	f.userFor["tab-c"] = &entity.User{Id: uuid.New()}
	reg := NewRegistry(time.Minute, f.factory, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, id := range []string{"tab-a", "tab-b", "tab-c"} {
		cs, err := reg.Get(ctx, id)
		require.NoError(t, err)
		require.NoError(t, cs.Auth.WaitInitialized(ctx))
		require.True(t, cs.Auth.NeedsRegistration())
	}

	assert.Equal(t, 2, reg.MarkRegistered(luna.Id))

	a, _ := reg.Get(ctx, "tab-a")
	c, _ := reg.Get(ctx, "tab-c")
	assert.True(t, a.Auth.IsFullyRegistered())
	assert.True(t, c.Auth.NeedsRegistration())
}
