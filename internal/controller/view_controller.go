// FILE: internal/controller/view_controller.go
package controller

import (
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IViewController interface {
	RegisterRoutes(r fiber.Router)
	Navbar(ctx *fiber.Ctx) error
	Pricing(ctx *fiber.Ctx) error
}

type viewController struct {
	service service.IViewService
}

func NewViewController(service service.IViewService) IViewController {
	return &viewController{service: service}
}

func (c *viewController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/views")
	h.Get("/navbar", c.Navbar)
	h.Get("/pricing", c.Pricing)
}

func (c *viewController) Navbar(ctx *fiber.Ctx) error {
	res, err := c.service.Navbar(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Navbar", res))
}

func (c *viewController) Pricing(ctx *fiber.Ctx) error {
	res, err := c.service.Pricing(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pricing", res))
}
