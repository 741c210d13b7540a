// FILE: internal/controller/payment_controller.go
package controller

import (
	"linkstride-client/internal/dto"
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	GetPlans(ctx *fiber.Ctx) error
	Checkout(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type paymentController struct {
	service  service.IPaymentService
	sessions serverutils.SessionChecker
}

func NewPaymentController(service service.IPaymentService, sessions serverutils.SessionChecker) IPaymentController {
	return &paymentController{service: service, sessions: sessions}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	auth := serverutils.SessionMiddleware(c.sessions)

	r.Get("/payment/plans", c.GetPlans)
	r.Get("/payment/:status", auth, c.Callback)
	r.Post("/subscription/checkout", auth, c.Checkout)
}

func (c *paymentController) GetPlans(ctx *fiber.Ctx) error {
	res, err := c.service.Plans(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching plans", res))
}

func (c *paymentController) Checkout(ctx *fiber.Ctx) error {
	res, err := c.service.Checkout(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout started", res))
}

// Callback is where the payment page sends the user back: /payment/success?order_id=...
func (c *paymentController) Callback(ctx *fiber.Ctx) error {
	var req dto.PaymentCallbackRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payment status")
	}
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid callback parameters")
	}

	res, err := c.service.HandleCallback(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Headline, res))
}
