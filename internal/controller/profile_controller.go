package controller

import (
	"errors"

	"bottarot-be/internal/dto"
	"bottarot-be/internal/mapper"
	"bottarot-be/internal/pkg/serverutils"
	"bottarot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IProfileController interface {
	RegisterRoutes(r fiber.Router, requireUser fiber.Handler)
	Get(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Context(ctx *fiber.Ctx) error
}

type profileController struct {
	service service.IProfileService
}

func NewProfileController(service service.IProfileService) IProfileController {
	return &profileController{service: service}
}

func (c *profileController) RegisterRoutes(r fiber.Router, requireUser fiber.Handler) {
	h := r.Group("/profile")
	h.Get("/context", c.Context)
	h.Get("/", requireUser, c.Get)
	h.Post("/", requireUser, c.Create)
	h.Put("/", requireUser, c.Update)
}

func (c *profileController) Get(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)
	profile, err := c.service.Get(ctx.UserContext(), userID(cs))
	if err != nil {
		return serverutils.ErrorResponse(ctx, profileErrorStatus(err), err.Error())
	}
	return serverutils.SuccessResponse(ctx, "Profile", mapper.ToProfileResponse(profile))
}

// Create completes the registration of the signed-in user.
func (c *profileController) Create(ctx *fiber.Ctx) error {
	var req dto.ProfileRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}
	cs := serverutils.ClientSession(ctx)
	user := cs.Auth.User()
	if user == nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, "Not signed in")
	}
	profile, err := c.service.Create(ctx.UserContext(), user, cs.ID, &req, cs.Auth)
	if err != nil {
		return serverutils.ErrorResponse(ctx, profileErrorStatus(err), err.Error())
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusCreated,
		"message": "Profile created",
		"data":    mapper.ToProfileResponse(profile),
	})
}

func (c *profileController) Update(ctx *fiber.Ctx) error {
	var req dto.ProfileRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}
	cs := serverutils.ClientSession(ctx)
	profile, err := c.service.Update(ctx.UserContext(), userID(cs), &req)
	if err != nil {
		return serverutils.ErrorResponse(ctx, profileErrorStatus(err), err.Error())
	}
	return serverutils.SuccessResponse(ctx, "Profile updated", mapper.ToProfileResponse(profile))
}

// Context is available to anonymous visitors too, who get the generic one.
func (c *profileController) Context(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)
	pc, err := c.service.PersonalContext(ctx.UserContext(), userID(cs))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadGateway, err.Error())
	}
	special := pc.SpecialDates
	if special == nil {
		special = []string{}
	}
	return serverutils.SuccessResponse(ctx, "Personal context", &dto.PersonalContextResponse{
		HasProfile:   pc.HasProfile,
		Context:      pc.Text,
		Greeting:     pc.PersonalizedGreeting(),
		Summary:      pc.Summary(),
		SpecialDates: special,
	})
}

func profileErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrProfileExists):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidDateOfBirth):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusBadGateway
	}
}
