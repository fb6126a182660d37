package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func SuccessResponse(ctx *fiber.Ctx, message string, data interface{}) error {
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusOK,
		"message": message,
		"data":    data,
	})
}

func ErrorResponse(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"success": false,
		"code":    status,
		"message": message,
		"data":    nil,
	})
}

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// envelope. Fiber errors keep their status, anything else is a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ErrorResponse(ctx, fe.Code, fe.Message)
		}
		return ErrorResponse(ctx, fiber.StatusInternalServerError, "Internal server error")
	}
}
