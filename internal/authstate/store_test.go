package authstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/permission"
	"bottarot-be/pkg/supabase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu         sync.Mutex
	session    *entity.Session
	sessionErr error
	gate       chan struct{}
	signOutErr error

	getCalls     atomic.Int32
	signOutCalls atomic.Int32
	clearCalls   atomic.Int32

	handler func(events.AuthChange)
	// onGet runs inside GetSession, e.g. to emit a token refresh
	onGet func()
}

func (f *fakeAuth) GetSession(ctx context.Context) (*entity.Session, error) {
	f.getCalls.Add(1)
	if f.onGet != nil {
		f.onGet()
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessionErr
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, &supabase.APIError{StatusCode: 400, Code: "invalid_grant", Message: "Invalid login credentials"}
	}
	return f.session, nil
}

func (f *fakeAuth) SignInWithOAuth(ctx context.Context, provider entity.OAuthProvider, redirectTo string) (*entity.OAuthRedirect, error) {
	if !provider.Valid() {
		return nil, supabase.ErrInvalidProvider
	}
	return &entity.OAuthRedirect{Provider: provider, URL: "https://auth.example.com/authorize"}, nil
}

func (f *fakeAuth) ExchangeCode(ctx context.Context, code string) (*entity.Session, error) {
	return f.SignInWithPassword(ctx, "", "")
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error) {
	return &supabase.SignUpResult{User: entity.User{Id: uuid.New(), Email: email}}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.signOutCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutErr
}

func (f *fakeAuth) ClearLocalSession() {
	f.clearCalls.Add(1)
}

func (f *fakeAuth) OnAuthStateChange(handler func(events.AuthChange)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return func() {
		f.mu.Lock()
		f.handler = nil
		f.mu.Unlock()
	}, nil
}

func (f *fakeAuth) emit(change events.AuthChange) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(change)
	}
}

type fakeProfiles struct {
	exists bool
	err    error
}

func (f *fakeProfiles) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.exists, f.err
}

// gatedProfiles holds every lookup until release is closed.
type gatedProfiles struct {
	release chan struct{}
	exists  bool
	calls   atomic.Int32
}

func (g *gatedProfiles) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
		return g.exists, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type fakePermissions struct {
	mu           sync.Mutex
	sub          *entity.Subscription
	subErr       error
	perms        *entity.ReadingPermissions
	permsErr     error
	hangSub      bool
	recordErr    error
	permCalls    atomic.Int32
	recordCalls  atomic.Int32
	lastQuestion entity.QuestionRecord
}

func (f *fakePermissions) GetSubscription(ctx context.Context, userID string) (*entity.Subscription, error) {
	if f.hangSub {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.subErr != nil {
		return nil, f.subErr
	}
	sub := *f.sub
	return &sub, nil
}

func (f *fakePermissions) GetReadingPermissions(ctx context.Context, userID string) (*entity.ReadingPermissions, error) {
	f.permCalls.Add(1)
	if f.permsErr != nil {
		return nil, f.permsErr
	}
	p := *f.perms
	return &p, nil
}

func (f *fakePermissions) RecordReading(ctx context.Context, userID string, revealedFuture bool) error {
	f.recordCalls.Add(1)
	return f.recordErr
}

func (f *fakePermissions) RecordQuestion(ctx context.Context, q entity.QuestionRecord) error {
	f.recordCalls.Add(1)
	f.mu.Lock()
	f.lastQuestion = q
	f.mu.Unlock()
	return f.recordErr
}

func premiumSub() *entity.Subscription {
	end := time.Now().Add(30 * 24 * time.Hour)
	return &entity.Subscription{
		PlanName:              "Premium",
		HasActiveSubscription: true,
		SubscriptionEndDate:   &end,
		CanAskQuestion:        true,
		QuestionsRemaining:    99,
	}
}

func newTestStore(auth *fakeAuth, profiles *fakeProfiles, perms *fakePermissions) *Store {
	if perms.sub == nil {
		perms.sub = premiumSub()
	}
	if perms.perms == nil {
		perms.perms = &entity.ReadingPermissions{CanReadToday: true, CanSeeFuture: true, FreeFuturesRemaining: 5, PlanName: "Premium"}
	}
	return NewStore(auth, profiles, perms, logger.NewNopLogger(), Config{
		SessionTimeout:    time.Second,
		PermissionTimeout: 50 * time.Millisecond,
	})
}

func sessionFor(id uuid.UUID) *entity.Session {
	return &entity.Session{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        entity.User{Id: id, Email: "seer@example.com"},
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	if snap.User == nil {
		assert.False(t, snap.NeedsRegistration, "needsRegistration must be false without a user")
	}
	assert.Equal(t, snap.User != nil && !snap.NeedsRegistration, snap.IsFullyRegistered)
}

func TestInitialize_Anonymous(t *testing.T) {
	s := newTestStore(&fakeAuth{}, &fakeProfiles{exists: true}, &fakePermissions{})
	assert.False(t, isClosed(s.Ready()))

	require.NoError(t, s.Initialize(context.Background()))

	assert.True(t, s.IsInitialized())
	assert.True(t, isClosed(s.Ready()))
	assert.False(t, s.IsLoggedIn())
	assert.False(t, s.Loading())
	assertInvariants(t, s)
}

func TestInitialize_SingleFlight(t *testing.T) {
	auth := &fakeAuth{session: sessionFor(uuid.New()), gate: make(chan struct{})}
	s := newTestStore(auth, &fakeProfiles{exists: true}, &fakePermissions{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Initialize(context.Background()))
		}()
	}

	require.Eventually(t, func() bool { return auth.getCalls.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, s.Loading())
	close(auth.gate)
	wg.Wait()

	assert.Equal(t, int32(1), auth.getCalls.Load())
	assert.True(t, s.IsLoggedIn())

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, int32(1), auth.getCalls.Load())
}

func TestInitialize_IsMonotonic(t *testing.T) {
	auth := &fakeAuth{session: sessionFor(uuid.New())}
	s := newTestStore(auth, &fakeProfiles{exists: true}, &fakePermissions{})
	require.NoError(t, s.SubscribeToChanges())
	require.NoError(t, s.Initialize(context.Background()))

	steps := []func(){
		func() { _ = s.Logout(context.Background()) },
		func() { auth.emit(events.AuthChange{Event: entity.AuthEventSignedIn, Session: sessionFor(uuid.New())}) },
		func() { auth.emit(events.AuthChange{Event: entity.AuthEventSignedOut}) },
		func() { _ = s.Initialize(context.Background()) },
	}
	for _, step := range steps {
		step()
		assert.True(t, s.IsInitialized())
		assertInvariants(t, s)
	}
}

func TestInitialize_ConnectivityErrorClearsLocalSession(t *testing.T) {
	auth := &fakeAuth{sessionErr: fmt.Errorf("refresh session: %w", context.DeadlineExceeded)}
	s := newTestStore(auth, &fakeProfiles{}, &fakePermissions{})

	err := s.Initialize(context.Background())
	assert.Error(t, err)

	assert.True(t, s.IsInitialized())
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, int32(1), auth.clearCalls.Load())
	assert.Equal(t, int32(0), auth.signOutCalls.Load())
}

func TestInitialize_InvalidSessionSignsOut(t *testing.T) {
	auth := &fakeAuth{sessionErr: &supabase.APIError{StatusCode: 400, Code: "invalid_grant"}}
	s := newTestStore(auth, &fakeProfiles{}, &fakePermissions{})

	_ = s.Initialize(context.Background())

	assert.True(t, s.IsInitialized())
	assert.Equal(t, int32(1), auth.signOutCalls.Load())
	assertInvariants(t, s)
}

func TestInitialize_MissingProfileNeedsRegistration(t *testing.T) {
	auth := &fakeAuth{session: sessionFor(uuid.New())}
	s := newTestStore(auth, &fakeProfiles{exists: false}, &fakePermissions{})

	require.NoError(t, s.Initialize(context.Background()))

	assert.True(t, s.IsLoggedIn())
	assert.True(t, s.NeedsRegistration())
	assert.False(t, s.IsFullyRegistered())

	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.NeedsRegistration())
	assert.Nil(t, s.Snapshot().Subscription)
	assertInvariants(t, s)
}

func TestCheckProfile_ErrorFailsOpen(t *testing.T) {
	auth := &fakeAuth{session: sessionFor(uuid.New())}
	s := newTestStore(auth, &fakeProfiles{err: errors.New("connection reset")}, &fakePermissions{})

	require.NoError(t, s.Initialize(context.Background()))

	assert.False(t, s.NeedsRegistration())
	assert.True(t, s.IsFullyRegistered())
}

func TestCheckProfile_DropsStaleResult(t *testing.T) {
	s := newTestStore(&fakeAuth{}, &fakeProfiles{exists: false}, &fakePermissions{})
	current := entity.User{Id: uuid.New()}
	s.setUser(&current)

	s.CheckProfile(context.Background(), uuid.New())
	assert.False(t, s.NeedsRegistration())

	s.CheckProfile(context.Background(), current.Id)
	assert.True(t, s.NeedsRegistration())
}

func TestSubscriptionTimeout_FallsBackToFreePlan(t *testing.T) {
	auth := &fakeAuth{session: sessionFor(uuid.New())}
	perms := &fakePermissions{hangSub: true}
	s := newTestStore(auth, &fakeProfiles{exists: true}, perms)

	require.NoError(t, s.Initialize(context.Background()))
	require.Eventually(t, func() bool { return s.Snapshot().Subscription != nil }, time.Second, 5*time.Millisecond)

	assert.False(t, s.IsPremiumUser())
	assert.Equal(t, entity.FreePlanName, s.CurrentPlan())
	assert.Equal(t, entity.DefaultQuestionsRemaining, s.QuestionsRemaining())
}

func TestCurrentPlanDefaultsBeforeAnyLoad(t *testing.T) {
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, &fakePermissions{})
	assert.Equal(t, entity.FreePlanName, s.CurrentPlan())
	assert.False(t, s.CanSeeFuture())
	assert.Equal(t, 0, s.FreeFuturesRemaining())
	assert.Equal(t, 0, s.QuestionsRemaining())
}

func TestLoadPermissions_AnonymousDefaults(t *testing.T) {
	perms := &fakePermissions{permsErr: &permission.StatusError{Path: "/api/user/reading-permissions/anonymous", StatusCode: 503}}
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, perms)
	require.NoError(t, s.Initialize(context.Background()))

	s.LoadPermissions(context.Background())

	snap := s.Snapshot()
	require.NotNil(t, snap.Permissions)
	assert.False(t, snap.CanSeeFuture)
	assert.Equal(t, 0, snap.FreeFuturesRemaining)
	assert.True(t, snap.Permissions.CanReadToday)
}

func TestLoadPermissions_SignedInDefaults(t *testing.T) {
	perms := &fakePermissions{permsErr: errors.New("boom")}
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, perms)
	s.setUser(&entity.User{Id: uuid.New()})

	s.LoadPermissions(context.Background())

	assert.True(t, s.CanSeeFuture())
	assert.Equal(t, entity.DefaultFreeFuturesRemaining, s.FreeFuturesRemaining())
}

func TestSubscribeToChanges_RejectsSecondCall(t *testing.T) {
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, &fakePermissions{})

	require.NoError(t, s.SubscribeToChanges())
	assert.ErrorIs(t, s.SubscribeToChanges(), ErrAlreadySubscribed)
}

func TestSignedInEventLoadsEverything(t *testing.T) {
	auth := &fakeAuth{}
	s := newTestStore(auth, &fakeProfiles{exists: false}, &fakePermissions{})
	require.NoError(t, s.SubscribeToChanges())
	defer s.Close()

	id := uuid.New()
	auth.emit(events.AuthChange{Event: entity.AuthEventSignedIn, Session: sessionFor(id)})

	assert.True(t, s.IsInitialized())
	require.NotNil(t, s.User())
	assert.Equal(t, id, s.User().Id)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Subscription != nil && snap.Permissions != nil && snap.NeedsRegistration
	}, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsPremiumUser())
	assert.Equal(t, "Premium", s.CurrentPlan())

	auth.emit(events.AuthChange{Event: entity.AuthEventSignedOut})
	snap := s.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Subscription)
	assert.Nil(t, snap.Permissions)
	assertInvariants(t, s)
}

func TestCloseStopsListening(t *testing.T) {
	auth := &fakeAuth{}
	s := newTestStore(auth, &fakeProfiles{exists: true}, &fakePermissions{})
	require.NoError(t, s.SubscribeToChanges())

	s.Close()
	auth.emit(events.AuthChange{Event: entity.AuthEventSignedIn, Session: sessionFor(uuid.New())})

	assert.False(t, s.IsLoggedIn())
}

func TestLoginWithPassword(t *testing.T) {
	auth := &fakeAuth{}
	s := newTestStore(auth, &fakeProfiles{exists: true}, &fakePermissions{})

	_, err := s.LoginWithPassword(context.Background(), "a@b.c", "nope")
	var apiErr *supabase.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, s.IsLoggedIn())
	assert.False(t, s.Loading())

	auth.session = sessionFor(uuid.New())
	session, err := s.LoginWithPassword(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, session.User.Id, s.User().Id)
	assert.True(t, s.IsFullyRegistered())
}

func TestLoginWithOAuth_InvalidProvider(t *testing.T) {
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, &fakePermissions{})

	_, err := s.LoginWithOAuth(context.Background(), entity.OAuthProvider("myspace"), "")
	assert.ErrorIs(t, err, supabase.ErrInvalidProvider)

	redirect, err := s.LoginWithOAuth(context.Background(), entity.OAuthProviderFacebook, "https://app")
	require.NoError(t, err)
	assert.Equal(t, entity.OAuthProviderFacebook, redirect.Provider)
}

func TestLogoutFailureKeepsState(t *testing.T) {
	auth := &fakeAuth{session: sessionFor(uuid.New())}
	s := newTestStore(auth, &fakeProfiles{exists: true}, &fakePermissions{})
	require.NoError(t, s.Initialize(context.Background()))

	auth.signOutErr = errors.New("network down")
	assert.Error(t, s.Logout(context.Background()))
	assert.True(t, s.IsLoggedIn())

	auth.signOutErr = supabase.ErrNoSession
	assert.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.IsLoggedIn())
}

func TestRecordReading_RefreshesCounters(t *testing.T) {
	perms := &fakePermissions{}
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, perms)

	select {
	case err := <-s.RecordReading(context.Background(), true):
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("record reading never finished")
	}

	assert.Equal(t, int32(1), perms.recordCalls.Load())
	assert.Equal(t, int32(1), perms.permCalls.Load())
	assert.NotNil(t, s.Snapshot().Subscription)
}

func TestRecordQuestion_FailureSkipsRefresh(t *testing.T) {
	perms := &fakePermissions{recordErr: errors.New("503")}
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, perms)
	user := entity.User{Id: uuid.New()}
	s.setUser(&user)

	err := <-s.RecordQuestion(context.Background(), entity.QuestionRecord{Question: "¿Y el amor?", Cards: []string{"The Lovers"}})
	assert.Error(t, err)
	assert.Equal(t, int32(0), perms.permCalls.Load())

	perms.mu.Lock()
	defer perms.mu.Unlock()
	assert.Equal(t, user.Id.String(), perms.lastQuestion.UserId)
}

func TestNeedsRegistrationHiddenWithoutUser(t *testing.T) {
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, &fakePermissions{})
	s.mu.Lock()
	s.needsRegistration = true
	s.mu.Unlock()

	assert.False(t, s.NeedsRegistration())
	assertInvariants(t, s)
}

func TestWaitInitialized(t *testing.T) {
	s := newTestStore(&fakeAuth{}, &fakeProfiles{}, &fakePermissions{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitInitialized(ctx), context.DeadlineExceeded)

	go func() { _ = s.Initialize(context.Background()) }()
	assert.NoError(t, s.WaitInitialized(context.Background()))
}

func TestInitialize_TokenRefreshWaitsForProfileCheck(t *testing.T) {
	id := uuid.New()
	auth := &fakeAuth{session: sessionFor(id)}
	profiles := &gatedProfiles{release: make(chan struct{})}
	s := NewStore(auth, profiles, &fakePermissions{sub: premiumSub(), perms: &entity.ReadingPermissions{}}, logger.NewNopLogger(), Config{
		SessionTimeout:    5 * time.Second,
		PermissionTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, s.SubscribeToChanges())
	defer s.Close()

	// a refreshed token is announced while the session is being resolved
	auth.onGet = func() {
		auth.emit(events.AuthChange{Event: entity.AuthEventTokenRefreshed, Session: sessionFor(id)})
	}

	done := make(chan error, 1)
	go func() { done <- s.Initialize(context.Background()) }()

	require.Eventually(t, func() bool { return profiles.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, isClosed(s.Ready()), "store announced before the profile check finished")

	close(profiles.release)
	<-s.Ready()
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.True(t, snap.IsLoggedIn)
	assert.True(t, snap.NeedsRegistration)
	assert.False(t, snap.IsFullyRegistered)
	assertInvariants(t, s)
}

func TestSignedInEventBeforeInitializeChecksProfileFirst(t *testing.T) {
	auth := &fakeAuth{}
	profiles := &gatedProfiles{release: make(chan struct{})}
	s := NewStore(auth, profiles, &fakePermissions{sub: premiumSub(), perms: &entity.ReadingPermissions{}}, logger.NewNopLogger(), Config{
		SessionTimeout:    5 * time.Second,
		PermissionTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, s.SubscribeToChanges())
	defer s.Close()

	go auth.emit(events.AuthChange{Event: entity.AuthEventSignedIn, Session: sessionFor(uuid.New())})

	require.Eventually(t, func() bool { return profiles.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, isClosed(s.Ready()))

	close(profiles.release)
	<-s.Ready()
	assert.True(t, s.NeedsRegistration())
	assert.False(t, s.IsFullyRegistered())
}
