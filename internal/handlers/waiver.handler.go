package handlers

import (
	"bytes"
	"io"
	"strings"

	"waiverdesk/internal/app"
	waiverController "waiverdesk/internal/controllers/waiver"
	"waiverdesk/internal/handlers/middleware"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

type WaiverHandler struct {
	Handler
	controller *waiverController.WaiverController
}

func NewWaiverHandler(app app.App, router fiber.Router) *WaiverHandler {
	log := logger.New("handlers").File("waiver_handler")
	return &WaiverHandler{
		controller: app.WaiverController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *WaiverHandler) Register() {
	waivers := h.router.Group("/waivers")
	waivers.Post("/", h.submitWaiver)

	h.router.Post("/admin/waivers/import", h.middleware.AuthRequired(), h.importWaivers)
}

func (h *WaiverHandler) submitWaiver(c *fiber.Ctx) error {
	log := h.log.Function("submitWaiver")

	var request SubmitWaiverRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse waiver submission", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse waiver submission"})
	}

	waiver, err := h.controller.Submit(c.Context(), request, clientIP(c), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return respondError(c, log, err)
	}

	return c.Status(fiber.StatusCreated).
		JSON(fiber.Map{"message": "success", "id": waiver.ID, "waiverYear": waiver.WaiverYear})
}

// importWaivers accepts a CSV either as the "file" field of a multipart form
// or as the raw request body.
func (h *WaiverHandler) importWaivers(c *fiber.Ctx) error {
	log := h.log.Function("importWaivers")

	var body io.Reader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"message": "file is required"})
		}
		file, err := header.Open()
		if err != nil {
			return respondError(c, log, err)
		}
		defer file.Close()
		body = file
	} else {
		body = bytes.NewReader(c.Body())
	}

	result, err := h.controller.Import(c.Context(), body)
	if err != nil {
		return respondError(c, log, err)
	}

	principal, _ := middleware.PrincipalFrom(c)
	log.Info("waivers imported", "username", principal.Username, "imported", result.Imported)
	return c.JSON(fiber.Map{
		"message":  "success",
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
	})
}
