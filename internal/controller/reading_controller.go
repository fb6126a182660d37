package controller

import (
	"context"
	"time"

	"bottarot-be/internal/dto"
	"bottarot-be/internal/entity"
	"bottarot-be/internal/mapper"
	"bottarot-be/internal/pkg/serverutils"
	"bottarot-be/internal/service"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/permission"

	"github.com/gofiber/fiber/v2"
)

type Warmer interface {
	SmartWarmup(ctx context.Context, contacts permission.ContactStore) permission.WarmupResult
}

type IReadingController interface {
	RegisterRoutes(r fiber.Router)
	Permissions(ctx *fiber.Ctx) error
	RecordReading(ctx *fiber.Ctx) error
	RecordQuestion(ctx *fiber.Ctx) error
	Warmup(ctx *fiber.Ctx) error
}

type readingController struct {
	warmer    Warmer
	analytics service.IAnalyticsService
	wait      time.Duration
}

func NewReadingController(warmer Warmer, analytics service.IAnalyticsService, wait time.Duration) IReadingController {
	return &readingController{warmer: warmer, analytics: analytics, wait: wait}
}

func (c *readingController) RegisterRoutes(r fiber.Router) {
	r.Get("/permissions", c.Permissions)
	r.Post("/readings", c.RecordReading)
	r.Post("/questions", c.RecordQuestion)
	r.Post("/warmup", c.Warmup)
}

// Permissions returns the entitlement part of the auth state. With
// ?refresh=true both snapshots are reloaded first.
func (c *readingController) Permissions(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)
	waitCtx, cancel := context.WithTimeout(ctx.UserContext(), c.wait)
	defer cancel()
	_ = cs.Auth.WaitInitialized(waitCtx)

	if ctx.QueryBool("refresh") {
		cs.Auth.LoadSubscription(ctx.UserContext())
		cs.Auth.LoadPermissions(ctx.UserContext())
	}
	return serverutils.SuccessResponse(ctx, "Permissions", mapper.ToAuthStateResponse(cs.Auth.Snapshot()))
}

// RecordReading is fire-and-forget; the snapshots refresh in the background.
func (c *readingController) RecordReading(ctx *fiber.Ctx) error {
	var req dto.RecordReadingRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}
	cs := serverutils.ClientSession(ctx)
	cs.Auth.RecordReading(ctx.UserContext(), req.RevealedFuture)
	c.analytics.Track(ctx.UserContext(), events.TypeAnalyticsReading, userID(cs), cs.ID, map[string]interface{}{
		"revealed_future": req.RevealedFuture,
	})
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusAccepted,
		"message": "Reading recorded",
		"data":    nil,
	})
}

func (c *readingController) RecordQuestion(ctx *fiber.Ctx) error {
	var req dto.RecordQuestionRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}
	cs := serverutils.ClientSession(ctx)
	cs.Auth.RecordQuestion(ctx.UserContext(), entity.QuestionRecord{
		Question: req.Question,
		Response: req.Response,
		Cards:    req.Cards,
	})
	c.analytics.Track(ctx.UserContext(), events.TypeAnalyticsQuestion, userID(cs), cs.ID, map[string]interface{}{
		"question_length": len([]rune(req.Question)),
		"cards_drawn":     len(req.Cards),
	})
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusAccepted,
		"message": "Question recorded",
		"data":    nil,
	})
}

func (c *readingController) Warmup(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)
	res := c.warmer.SmartWarmup(ctx.UserContext(), cs.Local)
	return serverutils.SuccessResponse(ctx, "Warmup", res)
}
