// FILE: internal/controller/auth_controller.go
package controller

import (
	"linkstride-client/internal/dto"
	"linkstride-client/internal/mapper"
	"linkstride-client/internal/pkg/serverutils"
	"linkstride-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
	Profile(ctx *fiber.Ctx) error
}

type authController struct {
	service    service.ISessionService
	userMapper *mapper.UserMapper
}

func NewAuthController(service service.ISessionService) IAuthController {
	return &authController{service: service, userMapper: mapper.NewUserMapper()}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/register", c.Register)
	h.Post("/login", c.Login)
	h.Post("/logout", c.Logout)
	h.Get("/session", c.Session)
	h.Get("/profile", serverutils.SessionMiddleware(c.service), c.Profile)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := c.service.Register(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	if session == nil {
		return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Registered, please sign in", dto.SessionResponse{}))
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Registered and signed in", dto.SessionResponse{
		Authenticated: true,
		User:          c.userMapper.ToSummary(&session.User),
	}))
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Signed in", dto.SessionResponse{
		Authenticated: true,
		User:          c.userMapper.ToSummary(&session.User),
	}))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	if err := c.service.Logout(ctx.UserContext()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Signed out", nil))
}

func (c *authController) Session(ctx *fiber.Ctx) error {
	user, err := c.service.CurrentUser(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session", dto.SessionResponse{
		Authenticated: user != nil,
		User:          c.userMapper.ToSummary(user),
	}))
}

func (c *authController) Profile(ctx *fiber.Ctx) error {
	user, err := c.service.Profile(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile", c.userMapper.ToSummary(user)))
}
