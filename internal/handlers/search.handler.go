package handlers

import (
	"waiverdesk/internal/app"
	searchController "waiverdesk/internal/controllers/search"
	waiverController "waiverdesk/internal/controllers/waiver"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SearchHandler struct {
	Handler
	controller       *searchController.SearchController
	waiverController *waiverController.WaiverController
}

func NewSearchHandler(app app.App, router fiber.Router) *SearchHandler {
	log := logger.New("handlers").File("search_handler")
	return &SearchHandler{
		controller:       app.SearchController,
		waiverController: app.WaiverController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SearchHandler) Register() {
	admin := h.router.Group("/admin")
	auth := h.middleware.AuthRequired()

	admin.Get("/suggestions", auth, h.getSuggestions)
	admin.Get("/search", auth, h.search)
	admin.Get("/records", auth, h.getRecords)
	admin.Get("/records/:id", auth, h.getRecord)
}

func (h *SearchHandler) getSuggestions(c *fiber.Ctx) error {
	log := h.log.Function("getSuggestions")

	suggestions, err := h.controller.Suggest(c.Context(), c.Query("q"))
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"suggestions": nonNil(suggestions)})
}

func (h *SearchHandler) search(c *fiber.Ctx) error {
	log := h.log.Function("search")

	results, err := h.controller.Search(c.Context(), c.Query("q"))
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"results": nonNil(results)})
}

func (h *SearchHandler) getRecords(c *fiber.Ctx) error {
	log := h.log.Function("getRecords")

	results, err := h.controller.ListRecent(c.Context())
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"results": nonNil(results)})
}

func (h *SearchHandler) getRecord(c *fiber.Ctx) error {
	log := h.log.Function("getRecord")

	id, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, log, ErrInvalidID)
	}

	waiver, err := h.waiverController.Get(c.Context(), id)
	if err != nil {
		return respondError(c, log, err)
	}

	return c.JSON(fiber.Map{"waiver": waiver})
}

func nonNil(candidates []SearchCandidate) []SearchCandidate {
	if candidates == nil {
		return []SearchCandidate{}
	}
	return candidates
}
