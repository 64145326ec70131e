package serverutils

import (
	"errors"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps service errors onto JSON responses so the
// controllers can just `return err`.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		switch {
		case errors.Is(err, apperr.ErrBriefingExists):
			// Conflict is a protocol branch, not a failure: the client is
			// expected to confirm and retry with force=true.
			return ctx.Status(fiber.StatusConflict).JSON(dto.BriefingConflictResponse{
				Conflict:             true,
				RequiresConfirmation: true,
			})
		case errors.Is(err, apperr.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(err.Error()))
		case errors.Is(err, apperr.ErrValidation):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(err.Error()))
		case errors.Is(err, apperr.ErrUnauthorized):
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(err.Error()))
		case errors.As(err, &fiberErr):
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(err.Error()))
		}
	}
}
