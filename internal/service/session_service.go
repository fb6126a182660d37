package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/supabase"

	"github.com/google/uuid"
)

// refresh a little before the access token actually expires
const refreshLeeway = 30 * time.Second

// GoTrue is the slice of the Supabase auth API a session needs.
type GoTrue interface {
	SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*entity.Session, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*entity.Session, error)
	SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error)
	SignOut(ctx context.Context, accessToken string) error
	AuthorizeURL(provider entity.OAuthProvider, redirectTo string) (string, string, error)
}

// CredentialStore holds the session and pending PKCE verifier of each client.
type CredentialStore interface {
	Save(clientID string, session *entity.Session)
	Get(clientID string) (*entity.Session, bool)
	Delete(clientID string)
	SaveVerifier(clientID, verifier string)
	TakeVerifier(clientID string) (string, bool)
}

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ISessionService is the auth session of one client session.
type ISessionService interface {
	GetSession(ctx context.Context) (*entity.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error)
	SignInWithOAuth(ctx context.Context, provider entity.OAuthProvider, redirectTo string) (*entity.OAuthRedirect, error)
	ExchangeCode(ctx context.Context, code string) (*entity.Session, error)
	SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error)
	SignOut(ctx context.Context) error
	ClearLocalSession()
	OnAuthStateChange(handler func(events.AuthChange)) (func(), error)
}

type sessionService struct {
	clientID  string
	gotrue    GoTrue
	creds     CredentialStore
	bus       *events.AuthBus
	publisher EventPublisher
	logger    logger.ILogger

	refreshMu sync.Mutex
	now       func() time.Time
}

// NewSessionService binds a session service to clientID. publisher may be nil
// when NATS is unavailable; cross-tab sync is then skipped.
func NewSessionService(clientID string, gotrue GoTrue, creds CredentialStore, bus *events.AuthBus, publisher EventPublisher, log logger.ILogger) ISessionService {
	return &sessionService{
		clientID:  clientID,
		gotrue:    gotrue,
		creds:     creds,
		bus:       bus,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// GetSession returns the cached session, refreshing it when the access token
// is about to expire. (nil, nil) means nobody is signed in.
func (s *sessionService) GetSession(ctx context.Context) (*entity.Session, error) {
	session, ok := s.creds.Get(s.clientID)
	if !ok {
		return nil, nil
	}
	if !session.Expired(s.now(), refreshLeeway) {
		return session, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	session, ok = s.creds.Get(s.clientID)
	if !ok {
		return nil, nil
	}
	if !session.Expired(s.now(), refreshLeeway) {
		return session, nil
	}

	refreshed, err := s.gotrue.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	s.creds.Save(s.clientID, refreshed)
	s.emit(entity.AuthEventTokenRefreshed, refreshed)
	return refreshed, nil
}

func (s *sessionService) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	session, err := s.gotrue.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.signedIn(ctx, session)
	return session, nil
}

func (s *sessionService) SignInWithOAuth(ctx context.Context, provider entity.OAuthProvider, redirectTo string) (*entity.OAuthRedirect, error) {
	authURL, verifier, err := s.gotrue.AuthorizeURL(provider, redirectTo)
	if err != nil {
		return nil, err
	}
	s.creds.SaveVerifier(s.clientID, verifier)
	return &entity.OAuthRedirect{Provider: provider, URL: authURL}, nil
}

func (s *sessionService) ExchangeCode(ctx context.Context, code string) (*entity.Session, error) {
	verifier, ok := s.creds.TakeVerifier(s.clientID)
	if !ok {
		return nil, supabase.ErrMissingVerifier
	}
	session, err := s.gotrue.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	s.signedIn(ctx, session)
	return session, nil
}

func (s *sessionService) SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error) {
	res, err := s.gotrue.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		s.signedIn(ctx, res.Session)
	}
	return res, nil
}

// SignOut revokes the session remotely. On failure the local credential is
// kept so the caller can decide; ErrNoSession is returned when there is none.
func (s *sessionService) SignOut(ctx context.Context) error {
	session, ok := s.creds.Get(s.clientID)
	if !ok {
		return supabase.ErrNoSession
	}
	if err := s.gotrue.SignOut(ctx, session.AccessToken); err != nil {
		var apiErr *supabase.APIError
		// an already revoked token means we are signed out anyway
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized && apiErr.StatusCode != http.StatusForbidden {
			return err
		}
	}

	s.creds.Delete(s.clientID)
	s.emit(entity.AuthEventSignedOut, nil)
	s.broadcast(ctx, events.TypeAuthSignedOut, session.User.Id)
	return nil
}

func (s *sessionService) ClearLocalSession() {
	s.creds.Delete(s.clientID)
}

func (s *sessionService) OnAuthStateChange(handler func(events.AuthChange)) (func(), error) {
	return s.bus.Subscribe(s.clientID, handler)
}

func (s *sessionService) signedIn(ctx context.Context, session *entity.Session) {
	s.creds.Save(s.clientID, session)
	s.emit(entity.AuthEventSignedIn, session)
	s.broadcast(ctx, events.TypeAuthSignedIn, session.User.Id)
}

func (s *sessionService) emit(event entity.AuthEvent, session *entity.Session) {
	if err := s.bus.Publish(s.clientID, events.AuthChange{Event: event, Session: session}); err != nil {
		s.logger.Error("SessionService", "Failed to emit auth change", map[string]interface{}{"event": event, "client_id": s.clientID, "error": err})
	}
}

// broadcast tells the user's other tabs and devices. Best effort.
func (s *sessionService) broadcast(ctx context.Context, eventType string, userID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	evt := events.NewUserEvent(eventType, userID, s.clientID, nil)
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(pubCtx, evt); err != nil {
			s.logger.Warn("SessionService", "Failed to publish auth event", map[string]interface{}{"type": eventType, "error": err.Error()})
		}
	}()
}
