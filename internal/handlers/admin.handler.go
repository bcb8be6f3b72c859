package handlers

import (
	"waiverdesk/internal/app"
	adminController "waiverdesk/internal/controllers/admin"
	"waiverdesk/internal/handlers/middleware"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Handler
	controller   *adminController.AdminController
	tokenService *services.TokenService
}

func NewAdminHandler(app app.App, router fiber.Router) *AdminHandler {
	log := logger.New("handlers").File("admin_handler")
	return &AdminHandler{
		controller:   app.AdminController,
		tokenService: app.TokenService,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AdminHandler) Register() {
	admin := h.router.Group("/admin")
	admin.Post("/login", h.login)
	admin.Post("/logout", h.logout)

	auth := h.middleware.AuthRequired()
	admin.Get("/check", auth, h.check)
	admin.Get("/users", auth, h.listUsers)
	admin.Post("/users", auth, h.createUser)
	admin.Delete("/users/:id", auth, h.deleteUser)
}

func (h *AdminHandler) login(c *fiber.Ctx) error {
	log := h.log.Function("login")

	var loginRequest LoginRequest
	if err := c.BodyParser(&loginRequest); err != nil {
		log.Er("failed to parse login request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse login request"})
	}

	session, err := h.controller.Login(c.Context(), loginRequest)
	if err != nil {
		return respondError(c, log, err)
	}

	h.middleware.SetSessionCookie(c, session.Token, int(h.tokenService.TTL().Seconds()))
	return c.JSON(fiber.Map{
		"message":   "success",
		"user":      session.Principal,
		"expiresAt": session.ExpiresAt,
	})
}

func (h *AdminHandler) logout(c *fiber.Ctx) error {
	log := h.log.Function("logout")

	if token := c.Cookies(services.TokenCookieName); token != "" {
		if err := h.tokenService.Revoke(c.Context(), token); err != nil {
			log.Er("failed to revoke token on logout", err)
		}
	}

	h.middleware.ClearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "success"})
}

func (h *AdminHandler) check(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		h.log.Function("check").ErMsg("no principal found in locals")
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"message": ErrUnauthorized.Error()})
	}

	return c.JSON(fiber.Map{"message": "success", "user": principal})
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	log := h.log.Function("listUsers")

	users, err := h.controller.ListUsers(c.Context())
	if err != nil {
		return respondError(c, log, err)
	}
	if users == nil {
		users = []*AdminUser{}
	}

	return c.JSON(fiber.Map{"message": "success", "users": users})
}

func (h *AdminHandler) createUser(c *fiber.Ctx) error {
	log := h.log.Function("createUser")

	var request CreateAdminRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse create user request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse create user request"})
	}

	user, err := h.controller.CreateUser(c.Context(), request)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "success", "user": user})
}

func (h *AdminHandler) deleteUser(c *fiber.Ctx) error {
	log := h.log.Function("deleteUser")

	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"message": ErrUnauthorized.Error()})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, log, ErrInvalidID)
	}

	if _, err := h.controller.DeleteUser(c.Context(), principal, id); err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"message": "success"})
}
