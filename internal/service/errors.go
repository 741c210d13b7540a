package service

import (
	"linkstride-client/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotAuthenticated     = serverutils.NewAppError(fiber.StatusUnauthorized, "Not signed in")
	ErrCustomCodeNotAllowed = serverutils.NewAppError(fiber.StatusForbidden, "Custom short codes are a Pro feature")
	ErrUpgradeRequired      = serverutils.NewAppError(fiber.StatusForbidden, "Link analytics are a Pro feature")
	ErrDailyLimitReached    = serverutils.NewAppError(fiber.StatusTooManyRequests, "Daily link limit reached, upgrade to Pro for unlimited links")
	ErrAlreadyPro           = serverutils.NewAppError(fiber.StatusConflict, "Already on the Pro plan")
	ErrUnknownPaymentStatus = serverutils.NewAppError(fiber.StatusBadRequest, "Unknown payment status")
)
