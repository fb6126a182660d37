package serverutils

import (
	"context"
	"time"

	"bottarot-be/internal/clientsession"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	ClientSessionHeader = "X-Client-Session"
	clientSessionLocal  = "client_session"
)

type ClientSessionConfig struct {
	CookieName string
	IdleTTL    time.Duration
	SecureOnly bool
}

// ClientSessionMiddleware attaches the caller's client session to the
// request, issuing a new id cookie when the browser has none. Tooling may
// send the id in the X-Client-Session header instead.
func ClientSessionMiddleware(registry *clientsession.Registry, cfg ClientSessionConfig) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id := ctx.Get(ClientSessionHeader)
		if id == "" {
			id = ctx.Cookies(cfg.CookieName)
		}
		if _, err := uuid.Parse(id); err != nil {
			id = clientsession.NewID()
		} else {
			// the registry keeps the id, fasthttp reuses the request buffer
			id = utils.CopyString(id)
		}
		ctx.Cookie(&fiber.Cookie{
			Name:     cfg.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(cfg.IdleTTL.Seconds()),
			HTTPOnly: true,
			Secure:   cfg.SecureOnly,
			SameSite: fiber.CookieSameSiteLaxMode,
		})

		cs, err := registry.Get(ctx.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Client session unavailable")
		}
		ctx.Locals(clientSessionLocal, cs)
		return ctx.Next()
	}
}

// ClientSession returns the session attached by ClientSessionMiddleware.
func ClientSession(ctx *fiber.Ctx) *clientsession.ClientSession {
	cs, _ := ctx.Locals(clientSessionLocal).(*clientsession.ClientSession)
	return cs
}

// RequireUser rejects anonymous callers once the session has been resolved,
// waiting at most wait for that. Mount after ClientSessionMiddleware.
func RequireUser(wait time.Duration) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		cs := ClientSession(ctx)
		if cs == nil {
			return ErrorResponse(ctx, fiber.StatusUnauthorized, "Not signed in")
		}
		waitCtx, cancel := context.WithTimeout(ctx.UserContext(), wait)
		defer cancel()
		if err := cs.Auth.WaitInitialized(waitCtx); err != nil {
			return ErrorResponse(ctx, fiber.StatusServiceUnavailable, "Session is still being restored")
		}
		if !cs.Auth.IsLoggedIn() {
			return ErrorResponse(ctx, fiber.StatusUnauthorized, "Not signed in")
		}
		return ctx.Next()
	}
}
