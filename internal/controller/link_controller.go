// FILE: internal/controller/link_controller.go
package controller

import (
	"linkstride-client/internal/dto"
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILinkController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Dashboard(ctx *fiber.Ctx) error
}

type linkController struct {
	service  service.ILinkService
	sessions serverutils.SessionChecker
}

func NewLinkController(service service.ILinkService, sessions serverutils.SessionChecker) ILinkController {
	return &linkController{service: service, sessions: sessions}
}

func (c *linkController) RegisterRoutes(r fiber.Router) {
	auth := serverutils.SessionMiddleware(c.sessions)

	h := r.Group("/links", auth)
	h.Get("/", c.List)
	h.Post("/", c.Create)
	h.Delete("/:code", c.Delete)
	h.Get("/:code/stats", c.Stats)

	r.Get("/dashboard", auth, c.Dashboard)
}

func (c *linkController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateLinkRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Short link created", res))
}

func (c *linkController) List(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext(), ctx.Query("search"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Links", res))
}

func (c *linkController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), ctx.Params("code")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Short link deleted", nil))
}

func (c *linkController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext(), ctx.Params("code"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Link stats", res))
}

func (c *linkController) Dashboard(ctx *fiber.Ctx) error {
	res, err := c.service.Dashboard(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Dashboard", res))
}
