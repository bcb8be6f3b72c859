package handlers

import (
	"context"
	"time"

	"waiverdesk/internal/app"
	"waiverdesk/internal/logger"

	"github.com/gofiber/fiber/v2"
)

func HealthHandler(router fiber.Router, app *app.App) {
	log := logger.New("handlers").File("health_handler")

	router.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		if err := app.Ping(ctx); err != nil {
			log.Function("health").Er("health check failed", err)
			return c.Status(fiber.StatusServiceUnavailable).
				JSON(fiber.Map{"message": "unavailable"})
		}

		return c.JSON(fiber.Map{
			"message":     "ok",
			"environment": app.Config.Environment,
			"strategy":    app.Config.SearchStrategy,
			"sessions":    app.Websocket.Count(),
		})
	})
}
