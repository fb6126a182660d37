// Package guard decides whether a client-side navigation may proceed, based
// on the auth state of the client session it comes from.
package guard

import (
	"context"
	"time"

	"bottarot-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// AuthState is what the guard reads. It is only read after Ready fires.
type AuthState interface {
	Ready() <-chan struct{}
	IsLoggedIn() bool
	IsFullyRegistered() bool
	LoadPermissions(ctx context.Context)
}

type Signer interface {
	Logout(ctx context.Context) error
}

type LocalState interface {
	Clear(ctx context.Context) error
}

type Guard struct {
	timeout      time.Duration
	newSessionID func() string
	logger       logger.ILogger
}

func New(timeout time.Duration, log logger.ILogger) *Guard {
	return &Guard{
		timeout:      timeout,
		newSessionID: uuid.NewString,
		logger:       log,
	}
}

// Decide never blocks longer than the guard timeout. A state that is not
// ready by then sends the visitor to landing, or lets them stay when they
// are already there.
func (g *Guard) Decide(ctx context.Context, route Route, params map[string]string, state AuthState) Decision {
	if publicRoutes[route] {
		return Proceed(route, params)
	}

	if !g.await(ctx, state) {
		g.logger.Warn("Guard", "Auth state not ready in time, falling back to landing", map[string]interface{}{"route": route, "timeout": g.timeout.String()})
		if route == RouteLanding {
			return Proceed(route, params)
		}
		return RedirectTo(RouteLanding, nil)
	}

	switch route {
	case RouteChat:
		if !state.IsLoggedIn() {
			// anonymous visitors get the restricted reading
			go state.LoadPermissions(context.WithoutCancel(ctx))
			return Proceed(route, params)
		}
		if !state.IsFullyRegistered() {
			return RedirectTo(RouteLanding, nil)
		}
		return Proceed(route, params)

	case RouteProfile:
		if !state.IsFullyRegistered() {
			return RedirectTo(RouteLanding, nil)
		}
		return Proceed(route, params)

	case RouteCheckout:
		if !state.IsLoggedIn() {
			return RedirectTo(RouteLanding, nil)
		}
		return Proceed(route, params)

	case RouteLanding:
		if state.IsFullyRegistered() {
			return g.newChat()
		}
		return Proceed(route, params)

	case RouteHome:
		if state.IsFullyRegistered() {
			return g.newChat()
		}
		return RedirectTo(RouteLanding, nil)
	}

	return RedirectTo(RouteLanding, nil)
}

// Logout signs out, wipes the client's local state and asks for a full
// reload on landing. Failures are logged; the reload happens regardless.
func (g *Guard) Logout(ctx context.Context, state Signer, local LocalState) Decision {
	if err := state.Logout(ctx); err != nil {
		g.logger.Warn("Guard", "Sign-out during logout failed", map[string]interface{}{"error": err.Error()})
	}
	if err := local.Clear(ctx); err != nil {
		g.logger.Warn("Guard", "Failed to clear local state", map[string]interface{}{"error": err.Error()})
	}
	return Decision{Action: ActionReload, Route: RouteLanding}
}

func (g *Guard) newChat() Decision {
	return RedirectTo(RouteChat, map[string]string{"id": g.newSessionID()})
}

func (g *Guard) await(ctx context.Context, state AuthState) bool {
	select {
	case <-state.Ready():
		return true
	default:
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-state.Ready():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
