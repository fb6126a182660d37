package controller

import (
	"context"
	"errors"
	"net/url"
	"time"

	"bottarot-be/internal/clientsession"
	"bottarot-be/internal/dto"
	"bottarot-be/internal/entity"
	"bottarot-be/internal/guard"
	"bottarot-be/internal/mapper"
	"bottarot-be/internal/pkg/serverutils"
	"bottarot-be/internal/service"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/supabase"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	State(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	SignUp(ctx *fiber.Ctx) error
	OAuth(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type AuthControllerConfig struct {
	// where the browser lands after an OAuth round trip
	ClientURL string
	// public URL of this service, used to build the OAuth callback
	BaseURL   string
	StateWait time.Duration
}

type authController struct {
	registry  *clientsession.Registry
	guard     *guard.Guard
	analytics service.IAnalyticsService
	cfg       AuthControllerConfig
}

func NewAuthController(registry *clientsession.Registry, g *guard.Guard, analytics service.IAnalyticsService, cfg AuthControllerConfig) IAuthController {
	return &authController{registry: registry, guard: g, analytics: analytics, cfg: cfg}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Get("/state", c.State)
	h.Post("/login", c.Login)
	h.Post("/signup", c.SignUp)
	h.Get("/oauth/:provider", c.OAuth)
	h.Get("/callback", c.Callback)
	h.Post("/logout", c.Logout)
}

// State reports the auth store, waiting briefly for a session that is still
// being restored.
func (c *authController) State(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)
	waitCtx, cancel := context.WithTimeout(ctx.UserContext(), c.cfg.StateWait)
	defer cancel()
	_ = cs.Auth.WaitInitialized(waitCtx)

	return serverutils.SuccessResponse(ctx, "Auth state", mapper.ToAuthStateResponse(cs.Auth.Snapshot()))
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}

	cs := serverutils.ClientSession(ctx)
	session, err := cs.Auth.LoginWithPassword(ctx.UserContext(), req.Email, req.Password)
	if err != nil {
		return serverutils.ErrorResponse(ctx, authErrorStatus(err), err.Error())
	}
	c.analytics.Track(ctx.UserContext(), events.TypeAnalyticsLogin, session.User.Id, cs.ID, map[string]interface{}{"method": "email"})

	return serverutils.SuccessResponse(ctx, "Login successful", mapper.ToAuthStateResponse(cs.Auth.Snapshot()))
}

func (c *authController) SignUp(ctx *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}

	cs := serverutils.ClientSession(ctx)
	res, err := cs.Auth.SignUp(ctx.UserContext(), req.Email, req.Password)
	if err != nil {
		return serverutils.ErrorResponse(ctx, authErrorStatus(err), err.Error())
	}
	c.analytics.Track(ctx.UserContext(), events.TypeAnalyticsSignUp, res.User.Id, cs.ID, map[string]interface{}{"method": "email"})

	user := res.User
	return serverutils.SuccessResponse(ctx, "Sign up successful", &dto.SignUpResponse{
		User:                      mapper.ToUserResponse(&user),
		EmailConfirmationRequired: res.Session == nil,
	})
}

// OAuth returns the provider URL the browser has to visit.
func (c *authController) OAuth(ctx *fiber.Ctx) error {
	provider := entity.OAuthProvider(ctx.Params("provider"))
	cs := serverutils.ClientSession(ctx)

	redirect, err := cs.Auth.LoginWithOAuth(ctx.UserContext(), provider, c.cfg.BaseURL+"/api/auth/callback")
	if err != nil {
		if errors.Is(err, supabase.ErrInvalidProvider) {
			return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, err.Error())
		}
		return serverutils.ErrorResponse(ctx, fiber.StatusBadGateway, err.Error())
	}
	return serverutils.SuccessResponse(ctx, "Redirect to provider", &dto.OAuthRedirectResponse{
		Provider: string(redirect.Provider),
		URL:      redirect.URL,
	})
}

// Callback finishes the PKCE flow and sends the browser back to the SPA.
func (c *authController) Callback(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)

	if desc := ctx.Query("error_description"); desc != "" {
		return ctx.Redirect(c.clientURL(desc), fiber.StatusFound)
	}
	code := ctx.Query("code")
	if code == "" {
		return ctx.Redirect(c.clientURL("missing code"), fiber.StatusFound)
	}

	session, err := cs.Auth.CompleteOAuth(ctx.UserContext(), code)
	if err != nil {
		return ctx.Redirect(c.clientURL(err.Error()), fiber.StatusFound)
	}
	c.analytics.Track(ctx.UserContext(), events.TypeAnalyticsLogin, session.User.Id, cs.ID, map[string]interface{}{"method": "oauth"})
	return ctx.Redirect(c.clientURL(""), fiber.StatusFound)
}

// Logout always ends with a reload on landing, even when the remote sign-out
// failed. The client session is dropped afterwards.
func (c *authController) Logout(ctx *fiber.Ctx) error {
	return logout(ctx, c.registry, c.guard, c.analytics)
}

func (c *authController) clientURL(authError string) string {
	if authError == "" {
		return c.cfg.ClientURL + "/"
	}
	return c.cfg.ClientURL + "/?auth_error=" + url.QueryEscape(authError)
}

func authErrorStatus(err error) int {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return fiber.StatusUnauthorized
	}
	if supabase.IsConnectivityError(err) {
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusBadGateway
}

// clientWipe forgets everything this client kept locally, the stored
// credential included.
type clientWipe struct {
	cs *clientsession.ClientSession
}

func (w clientWipe) Clear(ctx context.Context) error {
	w.cs.Session.ClearLocalSession()
	return w.cs.Local.Clear(ctx)
}

func logout(ctx *fiber.Ctx, registry *clientsession.Registry, g *guard.Guard, analytics service.IAnalyticsService) error {
	cs := serverutils.ClientSession(ctx)
	if u := cs.Auth.User(); u != nil {
		analytics.Track(ctx.UserContext(), events.TypeAnalyticsLogout, u.Id, cs.ID, nil)
	}
	decision := g.Logout(ctx.UserContext(), cs.Auth, clientWipe{cs: cs})
	registry.Drop(cs.ID)
	return serverutils.SuccessResponse(ctx, "Logged out", decision)
}
