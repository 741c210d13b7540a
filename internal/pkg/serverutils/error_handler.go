package serverutils

import (
	"errors"

	"linkstride-client/internal/apiclient"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into BaseResponse JSON.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponseWithData(fiber.StatusBadRequest, "Validation failed", verr.Fields))
	}

	if appErr, ok := AsAppError(err); ok {
		return ctx.Status(appErr.Code).JSON(ErrorResponse(appErr.Code, appErr.Message))
	}

	if apiErr, ok := apiclient.AsAPIError(err); ok {
		status := StatusForAPIError(apiErr)
		if apiErr.UpgradeRequired {
			return ctx.Status(status).JSON(ErrorResponseWithData(status, apiErr.Message, fiber.Map{"upgradeRequired": true}))
		}
		return ctx.Status(status).JSON(ErrorResponse(status, apiErr.Message))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
}

// StatusForAPIError maps a remote failure onto the gateway's own status code.
func StatusForAPIError(e *apiclient.APIError) int {
	switch e.Kind {
	case apiclient.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apiclient.KindForbidden:
		return fiber.StatusForbidden
	case apiclient.KindNotFound:
		return fiber.StatusNotFound
	case apiclient.KindValidation:
		if e.StatusCode >= 400 && e.StatusCode < 500 {
			return e.StatusCode
		}
		return fiber.StatusBadRequest
	case apiclient.KindTimeout:
		return fiber.StatusGatewayTimeout
	case apiclient.KindNetwork:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}
