// Package authstate holds the identity and entitlement snapshot of one client
// session: who is signed in, whether their profile is complete, and what the
// Permission API says they may do.
//
// A Store is created per client session. Initialize resolves the session once
// (single-flight); Ready is closed the first time the store becomes
// initialized and never reopens.
package authstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/permission"
	"bottarot-be/pkg/supabase"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrAlreadySubscribed = errors.New("authstate: already subscribed to auth changes")

// AuthService is the auth session of the owning client.
type AuthService interface {
	GetSession(ctx context.Context) (*entity.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error)
	SignInWithOAuth(ctx context.Context, provider entity.OAuthProvider, redirectTo string) (*entity.OAuthRedirect, error)
	ExchangeCode(ctx context.Context, code string) (*entity.Session, error)
	SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error)
	SignOut(ctx context.Context) error
	ClearLocalSession()
	OnAuthStateChange(handler func(events.AuthChange)) (func(), error)
}

type ProfileChecker interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type PermissionAPI interface {
	GetSubscription(ctx context.Context, userID string) (*entity.Subscription, error)
	GetReadingPermissions(ctx context.Context, userID string) (*entity.ReadingPermissions, error)
	RecordReading(ctx context.Context, userID string, revealedFuture bool) error
	RecordQuestion(ctx context.Context, q entity.QuestionRecord) error
}

type Config struct {
	SessionTimeout    time.Duration
	PermissionTimeout time.Duration
}

type Store struct {
	auth     AuthService
	profiles ProfileChecker
	perms    PermissionAPI
	logger   logger.ILogger
	cfg      Config
	now      func() time.Time

	mu                sync.RWMutex
	user              *entity.User
	initialized       bool
	initializing      bool
	inFlight          int
	needsRegistration bool
	subscription      *entity.Subscription
	permissions       *entity.ReadingPermissions

	ready     chan struct{}
	readyOnce sync.Once
	initGroup singleflight.Group

	subMu       sync.Mutex
	subscribed  bool
	unsubscribe func()
}

func NewStore(auth AuthService, profiles ProfileChecker, perms PermissionAPI, log logger.ILogger, cfg Config) *Store {
	return &Store{
		auth:     auth,
		profiles: profiles,
		perms:    perms,
		logger:   log,
		cfg:      cfg,
		now:      time.Now,
		ready:    make(chan struct{}),
	}
}

// Initialize resolves the current session once. Concurrent callers share the
// same attempt. The store is initialized when Initialize returns, even when
// the returned error reports that the session could not be resolved.
func (s *Store) Initialize(ctx context.Context) error {
	if s.IsInitialized() {
		return nil
	}
	_, err, _ := s.initGroup.Do("initialize", func() (interface{}, error) {
		return nil, s.initialize(context.WithoutCancel(ctx))
	})
	return err
}

func (s *Store) initialize(ctx context.Context) error {
	// the change listener may have finished the job while we queued
	if s.IsInitialized() {
		return nil
	}

	s.begin()
	defer s.end()
	s.setInitializing(true)
	defer s.setInitializing(false)
	defer s.markInitialized()

	sessionCtx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout)
	session, err := s.auth.GetSession(sessionCtx)
	cancel()

	if err != nil {
		s.recoverSession(ctx, err)
		s.setUser(nil)
		return fmt.Errorf("resolve session: %w", err)
	}
	if session == nil {
		s.setUser(nil)
		return nil
	}

	user := session.User
	s.setUser(&user)

	// registration status gates navigation, entitlements do not
	s.CheckProfile(ctx, user.Id)
	go s.refreshEntitlements(ctx)
	return nil
}

// recoverSession drops a credential that could not be resolved. When the
// auth service is unreachable only the local copy goes, so the next attempt
// does not hammer a dead endpoint with the same stale token.
func (s *Store) recoverSession(ctx context.Context, cause error) {
	if supabase.IsConnectivityError(cause) {
		s.logger.Warn("AuthState", "Auth service unreachable, clearing local session", map[string]interface{}{"error": cause.Error()})
		s.auth.ClearLocalSession()
		return
	}

	s.logger.Warn("AuthState", "Session invalid, signing out", map[string]interface{}{"error": cause.Error()})
	signOutCtx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout)
	defer cancel()
	if err := s.auth.SignOut(signOutCtx); err != nil && !errors.Is(err, supabase.ErrNoSession) {
		s.logger.Warn("AuthState", "Best-effort sign-out failed", map[string]interface{}{"error": err.Error()})
	}
	s.auth.ClearLocalSession()
}

// SubscribeToChanges registers the store's single auth-change listener.
func (s *Store) SubscribeToChanges() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subscribed {
		return ErrAlreadySubscribed
	}
	unsubscribe, err := s.auth.OnAuthStateChange(s.handleChange)
	if err != nil {
		return fmt.Errorf("subscribe to auth changes: %w", err)
	}
	s.subscribed = true
	s.unsubscribe = unsubscribe
	return nil
}

// handleChange applies a change from the auth service. While Initialize is
// running it owns the announcement; otherwise the first user seen has its
// profile checked before the store is announced.
func (s *Store) handleChange(change events.AuthChange) {
	user := change.User()
	s.setUser(user)

	checked := false
	if !s.isInitializing() && !s.IsInitialized() {
		if user != nil {
			s.CheckProfile(context.Background(), user.Id)
			checked = true
		}
		s.markInitialized()
	}

	switch change.Event {
	case entity.AuthEventSignedIn:
		if user == nil {
			break
		}
		if checked {
			go s.refreshEntitlements(context.Background())
		} else {
			go s.loadAll(context.Background(), user.Id)
		}
	case entity.AuthEventSignedOut:
		s.clear()
	}
}

// loadAll refreshes registration status and both snapshots in parallel.
// Each load is failure tolerant, so the group never reports an error.
func (s *Store) loadAll(ctx context.Context, userID uuid.UUID) {
	var g errgroup.Group
	g.Go(func() error {
		s.CheckProfile(ctx, userID)
		return nil
	})
	g.Go(func() error {
		s.LoadSubscription(ctx)
		return nil
	})
	g.Go(func() error {
		s.LoadPermissions(ctx)
		return nil
	})
	_ = g.Wait()
}

func (s *Store) refreshEntitlements(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		s.LoadSubscription(ctx)
		return nil
	})
	g.Go(func() error {
		s.LoadPermissions(ctx)
		return nil
	})
	_ = g.Wait()
}

// CheckProfile sets needsRegistration when userID has no profile row. A
// failed lookup leaves the user treated as registered. Results for a user
// that is no longer current are dropped.
func (s *Store) CheckProfile(ctx context.Context, userID uuid.UUID) {
	checkCtx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout)
	defer cancel()

	exists, err := s.profiles.Exists(checkCtx, userID)
	if err != nil {
		s.logger.Warn("AuthState", "Profile check failed, assuming registered", map[string]interface{}{"user_id": userID, "error": err.Error()})
		exists = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.Id != userID {
		return
	}
	s.needsRegistration = !exists
}

// MarkRegistered is called once the profile row has been written.
func (s *Store) MarkRegistered(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil && s.user.Id == userID {
		s.needsRegistration = false
	}
}

// LoadSubscription fetches the subscription snapshot, installing the free
// default on any failure. Anonymous visitors get the default without a call.
func (s *Store) LoadSubscription(ctx context.Context) {
	key := s.permissionUser()
	if key == permission.AnonymousUser {
		s.applySubscription(key, entity.DefaultSubscription())
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.PermissionTimeout)
	defer cancel()

	sub, err := s.perms.GetSubscription(loadCtx, key)
	if err != nil {
		s.logger.Warn("AuthState", "Subscription load failed, using free plan", map[string]interface{}{"user_id": key, "error": err.Error()})
		sub = entity.DefaultSubscription()
	}
	s.applySubscription(key, sub)
}

// LoadPermissions fetches the reading permissions for the current user, or
// for "anonymous" when nobody is signed in.
func (s *Store) LoadPermissions(ctx context.Context) {
	key := s.permissionUser()

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.PermissionTimeout)
	defer cancel()

	perms, err := s.perms.GetReadingPermissions(loadCtx, key)
	if err != nil {
		s.logger.Warn("AuthState", "Permission load failed, using defaults", map[string]interface{}{"user_id": key, "error": err.Error()})
		perms = entity.DefaultReadingPermissions(key == permission.AnonymousUser)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permissionUserLocked() != key {
		return
	}
	s.permissions = perms
}

func (s *Store) applySubscription(key string, sub *entity.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permissionUserLocked() != key {
		return
	}
	s.subscription = sub
}

// LoginWithPassword signs in and applies the user right away; snapshots
// follow through the SIGNED_IN change.
func (s *Store) LoginWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	s.begin()
	defer s.end()

	session, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.logger.Warn("AuthState", "Password login failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	s.signedIn(ctx, session)
	return session, nil
}

func (s *Store) LoginWithOAuth(ctx context.Context, provider entity.OAuthProvider, redirectTo string) (*entity.OAuthRedirect, error) {
	s.begin()
	defer s.end()

	redirect, err := s.auth.SignInWithOAuth(ctx, provider, redirectTo)
	if err != nil {
		s.logger.Warn("AuthState", "OAuth login failed", map[string]interface{}{"provider": provider, "error": err.Error()})
		return nil, err
	}
	return redirect, nil
}

// CompleteOAuth exchanges the code the provider redirected back with.
func (s *Store) CompleteOAuth(ctx context.Context, code string) (*entity.Session, error) {
	s.begin()
	defer s.end()

	session, err := s.auth.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Warn("AuthState", "OAuth code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	s.signedIn(ctx, session)
	return session, nil
}

func (s *Store) SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error) {
	s.begin()
	defer s.end()

	res, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		s.logger.Warn("AuthState", "Sign-up failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	if res.Session != nil {
		s.signedIn(ctx, res.Session)
	}
	return res, nil
}

func (s *Store) signedIn(ctx context.Context, session *entity.Session) {
	user := session.User
	s.setUser(&user)
	s.CheckProfile(context.WithoutCancel(ctx), user.Id)
	s.markInitialized()
}

// Logout signs out remotely and, on success, forgets the user and both
// snapshots. A failed sign-out leaves the state untouched.
func (s *Store) Logout(ctx context.Context) error {
	s.begin()
	defer s.end()

	if err := s.auth.SignOut(ctx); err != nil && !errors.Is(err, supabase.ErrNoSession) {
		s.logger.Warn("AuthState", "Logout failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.clear()
	return nil
}

// RecordReading reports a finished reading and refreshes the counters. The
// channel yields the outcome once; callers are free to ignore it.
func (s *Store) RecordReading(ctx context.Context, revealedFuture bool) <-chan error {
	key := s.permissionUser()
	return s.fireAndRefresh(ctx, "reading", func(ctx context.Context) error {
		return s.perms.RecordReading(ctx, key, revealedFuture)
	})
}

// RecordQuestion reports an answered question on behalf of the current user.
func (s *Store) RecordQuestion(ctx context.Context, q entity.QuestionRecord) <-chan error {
	q.UserId = s.permissionUser()
	q.IsPremium = s.IsPremiumUser()
	return s.fireAndRefresh(ctx, "question", func(ctx context.Context) error {
		return s.perms.RecordQuestion(ctx, q)
	})
}

func (s *Store) fireAndRefresh(ctx context.Context, what string, call func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	base := context.WithoutCancel(ctx)

	go func() {
		defer close(done)

		callCtx, cancel := context.WithTimeout(base, s.cfg.PermissionTimeout)
		err := call(callCtx)
		cancel()

		if err != nil {
			s.logger.Warn("AuthState", "Failed to record "+what, map[string]interface{}{"error": err.Error()})
			done <- err
			return
		}
		s.refreshEntitlements(base)
		done <- nil
	}()
	return done
}

// Close drops the auth-change listener. The store stays readable.
func (s *Store) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// setUser installs user. Registration status and snapshots belong to an
// identity, so they are reset whenever the identity changes.
func (s *Store) setUser(user *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sameUser(s.user, user) {
		if user != nil {
			s.user = user
		}
		return
	}
	s.user = user
	s.needsRegistration = false
	s.subscription = nil
	s.permissions = nil
}

func sameUser(a, b *entity.User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Id == b.Id
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.needsRegistration = false
	s.subscription = nil
	s.permissions = nil
}

func (s *Store) setInitializing(v bool) {
	s.mu.Lock()
	s.initializing = v
	s.mu.Unlock()
}

func (s *Store) isInitializing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializing
}

func (s *Store) markInitialized() {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *Store) permissionUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissionUserLocked()
}

func (s *Store) permissionUserLocked() string {
	if s.user == nil {
		return permission.AnonymousUser
	}
	return s.user.Id.String()
}
