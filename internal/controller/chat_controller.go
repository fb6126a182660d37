package controller

import (
	"errors"

	"bottarot-be/internal/chatlist"
	"bottarot-be/internal/dto"
	"bottarot-be/internal/mapper"
	"bottarot-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, requireUser fiber.Handler)
	List(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Rename(ctx *fiber.Ctx) error
	ToggleFavorite(ctx *fiber.Ctx) error
}

type chatController struct{}

func NewChatController() IChatController {
	return &chatController{}
}

func (c *chatController) RegisterRoutes(r fiber.Router, requireUser fiber.Handler) {
	h := r.Group("/chats", requireUser)
	h.Get("/", c.List)
	h.Delete("/:id", c.Delete)
	h.Patch("/:id", c.Rename)
	h.Post("/:id/favorite", c.ToggleFavorite)
}

// List refreshes the chat list from the database. On failure the last known
// list is still returned alongside the error.
func (c *chatController) List(ctx *fiber.Ctx) error {
	cs := serverutils.ClientSession(ctx)
	if err := cs.Chats.Fetch(ctx.UserContext(), userID(cs)); err != nil {
		return ctx.Status(chatErrorStatus(err)).JSON(fiber.Map{
			"success": false,
			"code":    chatErrorStatus(err),
			"message": err.Error(),
			"data":    mapper.ToChatSummaryResponses(cs.Chats.Items()),
		})
	}
	return serverutils.SuccessResponse(ctx, "Chats", mapper.ToChatSummaryResponses(cs.Chats.Items()))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	chatID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Invalid chat id")
	}
	cs := serverutils.ClientSession(ctx)
	if err := cs.Chats.Delete(ctx.UserContext(), chatID, userID(cs)); err != nil {
		return serverutils.ErrorResponse(ctx, chatErrorStatus(err), err.Error())
	}
	return serverutils.SuccessResponse(ctx, "Chat deleted", mapper.ToChatSummaryResponses(cs.Chats.Items()))
}

func (c *chatController) Rename(ctx *fiber.Ctx) error {
	chatID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Invalid chat id")
	}
	var req dto.RenameChatRequest
	if err := serverutils.BindAndValidate(ctx, &req); err != nil {
		return err
	}
	cs := serverutils.ClientSession(ctx)
	if err := cs.Chats.Rename(ctx.UserContext(), chatID, req.Title, userID(cs)); err != nil {
		return serverutils.ErrorResponse(ctx, chatErrorStatus(err), err.Error())
	}
	return serverutils.SuccessResponse(ctx, "Chat renamed", mapper.ToChatSummaryResponses(cs.Chats.Items()))
}

func (c *chatController) ToggleFavorite(ctx *fiber.Ctx) error {
	chatID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Invalid chat id")
	}
	cs := serverutils.ClientSession(ctx)
	if err := cs.Chats.ToggleFavorite(ctx.UserContext(), chatID, userID(cs)); err != nil {
		return serverutils.ErrorResponse(ctx, chatErrorStatus(err), err.Error())
	}
	return serverutils.SuccessResponse(ctx, "Favorite toggled", mapper.ToChatSummaryResponses(cs.Chats.Items()))
}

func chatErrorStatus(err error) int {
	if errors.Is(err, chatlist.ErrNotAuthenticated) {
		return fiber.StatusUnauthorized
	}
	return fiber.StatusBadGateway
}
