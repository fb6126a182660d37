// Package clientsession tracks the live client sessions of this instance.
// A client session is one browser tab or device; it owns its own auth state,
// chat list and local state, created on first contact and closed when idle.
package clientsession

import (
	"context"
	"fmt"
	"time"

	"bottarot-be/internal/authstate"
	"bottarot-be/internal/chatlist"
	"bottarot-be/internal/localstate"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/internal/service"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type ClientSession struct {
	ID      string
	Auth    *authstate.Store
	Chats   *chatlist.Store
	Local   *localstate.State
	Session service.ISessionService
}

// Close stops listening for auth changes and drops the cached chat list.
// Credentials and local state outlive the session object.
func (cs *ClientSession) Close() {
	if cs.Auth != nil {
		cs.Auth.Close()
	}
	if cs.Chats != nil {
		cs.Chats.Clear()
	}
}

// Factory builds the stores of a new client session.
type Factory func(clientID string) (*ClientSession, error)

type Registry struct {
	sessions *cache.Cache
	factory  Factory
	creating singleflight.Group
	logger   logger.ILogger
}

func NewRegistry(idleTTL time.Duration, factory Factory, log logger.ILogger) *Registry {
	r := &Registry{
		sessions: cache.New(idleTTL, idleTTL/2),
		factory:  factory,
		logger:   log,
	}
	r.sessions.OnEvicted(func(id string, v interface{}) {
		if cs, ok := v.(*ClientSession); ok {
			cs.Close()
		}
		r.logger.Debug("ClientSessions", "Client session closed", map[string]interface{}{"client_id": id})
	})
	return r
}

func NewID() string {
	return uuid.NewString()
}

// Get returns the client session for id, creating and starting it on first
// contact. Every call extends the idle deadline.
func (r *Registry) Get(ctx context.Context, id string) (*ClientSession, error) {
	if v, ok := r.sessions.Get(id); ok {
		cs := v.(*ClientSession)
		r.sessions.SetDefault(id, cs)
		return cs, nil
	}

	v, err, _ := r.creating.Do(id, func() (interface{}, error) {
		if v, ok := r.sessions.Get(id); ok {
			return v, nil
		}
		cs, err := r.factory(id)
		if err != nil {
			return nil, fmt.Errorf("create client session: %w", err)
		}
		r.start(ctx, cs)
		r.sessions.SetDefault(id, cs)
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClientSession), nil
}

// start subscribes the auth store before resolving the session so no change
// emitted during initialization is missed.
func (r *Registry) start(ctx context.Context, cs *ClientSession) {
	if err := cs.Auth.SubscribeToChanges(); err != nil {
		r.logger.Error("ClientSessions", "Failed to subscribe to auth changes", map[string]interface{}{"client_id": cs.ID, "error": err.Error()})
	}
	go func() {
		if err := cs.Auth.Initialize(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("ClientSessions", "Session could not be restored", map[string]interface{}{"client_id": cs.ID, "error": err.Error()})
		}
	}()
	r.logger.Debug("ClientSessions", "Client session started", map[string]interface{}{"client_id": cs.ID})
}

// Drop closes the client session now.
func (r *Registry) Drop(id string) {
	r.sessions.Delete(id)
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}

// MarkRegistered flags userID as fully registered in every live session
// signed in as that user and reports how many were touched.
func (r *Registry) MarkRegistered(userID uuid.UUID) int {
	n := 0
	for _, item := range r.sessions.Items() {
		cs, ok := item.Object.(*ClientSession)
		if !ok {
			continue
		}
		if u := cs.Auth.User(); u != nil && u.Id == userID {
			cs.Auth.MarkRegistered(userID)
			n++
		}
	}
	return n
}

// Close drops every session. Used on shutdown.
func (r *Registry) Close() {
	for id := range r.sessions.Items() {
		r.sessions.Delete(id)
	}
}
