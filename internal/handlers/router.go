package handlers

import (
	"time"

	"waiverdesk/internal/app"
	"waiverdesk/internal/handlers/middleware"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

// Signature images arrive as data URLs inside the JSON body.
const bodyLimit = 8 * 1024 * 1024

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

// NewServer builds the fiber app with every route registered.
func NewServer(app *app.App) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:      "waiverdesk",
		ErrorHandler: ErrorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	server.Use(recover.New())
	server.Use(app.Middleware.RequestID())

	Router(server, app)
	return server
}

func Router(router fiber.Router, app *app.App) {
	setupWebSocketRoute(router, app)

	api := router.Group("/api")
	HealthHandler(api, app)
	NewWaiverHandler(*app, api).Register()
	NewAdminHandler(*app, api).Register()
	NewSearchHandler(*app, api).Register()
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/typeahead", app.Middleware.AuthRequired(), websocket.New(func(c *websocket.Conn) {
		principal, _ := c.Locals(middleware.PrincipalLocal).(Principal)
		app.Websocket.HandleWebSocket(c, principal)
	}))
}
