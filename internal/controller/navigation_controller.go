package controller

import (
	"bottarot-be/internal/clientsession"
	"bottarot-be/internal/guard"
	"bottarot-be/internal/pkg/serverutils"
	"bottarot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type INavigationController interface {
	RegisterRoutes(r fiber.Router)
	Navigate(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type navigationController struct {
	registry  *clientsession.Registry
	guard     *guard.Guard
	analytics service.IAnalyticsService
}

func NewNavigationController(registry *clientsession.Registry, g *guard.Guard, analytics service.IAnalyticsService) INavigationController {
	return &navigationController{registry: registry, guard: g, analytics: analytics}
}

func (c *navigationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/navigate")
	h.Post("/logout", c.Logout)
	h.Get("/:route", c.Navigate)
}

// Navigate tells the SPA router what to do with a navigation to :route.
// Query parameters are passed through as route params.
func (c *navigationController) Navigate(ctx *fiber.Ctx) error {
	route := guard.Route(ctx.Params("route"))
	if route == guard.RouteLogout {
		return c.Logout(ctx)
	}

	var params map[string]string
	if q := ctx.Queries(); len(q) > 0 {
		params = q
	}

	cs := serverutils.ClientSession(ctx)
	decision := c.guard.Decide(ctx.UserContext(), route, params, cs.Auth)
	return serverutils.SuccessResponse(ctx, "Navigation decided", decision)
}

func (c *navigationController) Logout(ctx *fiber.Ctx) error {
	return logout(ctx, c.registry, c.guard, c.analytics)
}
