package controller

import (
	"errors"
	"time"

	"bottarot-be/internal/dto"
	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/serverutils"
	"bottarot-be/internal/service"
	"bottarot-be/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type ILocalController interface {
	RegisterRoutes(r fiber.Router)
	GetLanguage(ctx *fiber.Ctx) error
	SetLanguage(ctx *fiber.Ctx) error
	SetGeolocation(ctx *fiber.Ctx) error
}

type localController struct {
	locale    service.ILocaleService
	analytics service.IAnalyticsService
}

func NewLocalController(locale service.ILocaleService, analytics service.IAnalyticsService) ILocalController {
	return &localController{locale: locale, analytics: analytics}
}

func (c *localController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/local")
	h.Get("/language", c.GetLanguage)
	h.Put("/language", c.SetLanguage)
	h.Put("/geolocation", c.SetGeolocation)
}

func (c *localController) GetLanguage(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)
	lang := c.locale.Resolve(ctx.UserContext(), cs.Local, userID(cs), utils.CopyString(ctx.Get(fiber.HeaderAcceptLanguage)))
	return serverutils.SuccessResponse(ctx, "Language", &dto.LanguageResponse{Language: lang})
}

func (c *localController) SetLanguage(ctx *fiber.Ctx) error {
	var req dto.LanguageRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}
	cs := serverutils.ClientSession(ctx)
	if err := c.locale.Change(ctx.UserContext(), cs.Local, userID(cs), cs.ID, req.Language); err != nil {
		if errors.Is(err, service.ErrUnsupportedLanguage) {
			return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	lang, _ := cs.Local.Language(ctx.UserContext())
	return serverutils.SuccessResponse(ctx, "Language saved", &dto.LanguageResponse{Language: lang})
}

func (c *localController) SetGeolocation(ctx *fiber.Ctx) error {
	var req dto.GeolocationRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}
	cs := serverutils.ClientSession(ctx)
	fix := entity.GeoFix{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		CapturedAt: time.Now().UTC(),
	}
	if err := cs.Local.SetGeolocation(ctx.UserContext(), fix); err != nil {
		return err
	}
	c.analytics.Track(ctx.UserContext(), events.TypeAnalyticsGeolocation, userID(cs), cs.ID, nil)
	return serverutils.SuccessResponse(ctx, "Geolocation saved", fix)
}
