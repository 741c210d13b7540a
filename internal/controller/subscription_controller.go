// FILE: internal/controller/subscription_controller.go
package controller

import (
	"linkstride-client/internal/mapper"
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router)
	GetStatus(ctx *fiber.Ctx) error
	Invalidate(ctx *fiber.Ctx) error
	GetPending(ctx *fiber.Ctx) error
	SyncPending(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	service  service.ISubscriptionService
	sessions serverutils.SessionChecker
	mapper   *mapper.SubscriptionMapper
}

func NewSubscriptionController(service service.ISubscriptionService, sessions serverutils.SessionChecker, freeLinksPerDay int) ISubscriptionController {
	return &subscriptionController{
		service:  service,
		sessions: sessions,
		mapper:   mapper.NewSubscriptionMapper(freeLinksPerDay),
	}
}

func (c *subscriptionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/subscription", serverutils.SessionMiddleware(c.sessions))
	h.Get("/", c.GetStatus)
	h.Post("/invalidate", c.Invalidate)
	h.Get("/pending", c.GetPending)
	h.Post("/pending/sync", c.SyncPending)
}

// GetStatus serves the cached record; ?refresh=true bypasses the TTL.
func (c *subscriptionController) GetStatus(ctx *fiber.Ctx) error {
	record, err := c.service.GetStatus(ctx.UserContext(), ctx.QueryBool("refresh", false))
	if err != nil {
		return err
	}
	state := c.service.State(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Subscription", c.mapper.ToStatusResponse(state, record)))
}

func (c *subscriptionController) Invalidate(ctx *fiber.Ctx) error {
	if err := c.service.Invalidate(ctx.UserContext()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Subscription cache cleared", nil))
}

func (c *subscriptionController) GetPending(ctx *fiber.Ctx) error {
	marker, err := c.service.GetPendingPayment(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pending payment", c.mapper.MarkerToView(marker)))
}

func (c *subscriptionController) SyncPending(ctx *fiber.Ctx) error {
	marker, err := c.service.SyncPendingPayment(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pending payment", c.mapper.MarkerToView(marker)))
}
