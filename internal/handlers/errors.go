package handlers

import (
	"errors"
	"strings"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

var (
	badRequestErrors = []error{
		ErrQueryTooShort,
		ErrInvalidWaiver,
		ErrInvalidID,
		ErrPasswordTooShort,
		ErrMissingLogin,
		ErrSelfDelete,
		ErrInvalidImport,
	}
	unauthorizedErrors = []error{ErrUnauthorized, ErrInvalidCredentials}
)

// statusFor maps domain errors onto HTTP statuses. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case isAny(err, badRequestErrors):
		return fiber.StatusBadRequest
	case isAny(err, unauthorizedErrors):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrDuplicateUsername):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError writes {"message": ...}. Server faults are logged and their
// details kept out of the response.
func respondError(c *fiber.Ctx, log logger.Logger, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Er("request failed", err, "path", c.Path())
		return c.Status(status).JSON(fiber.Map{"message": "internal server error"})
	}

	return c.Status(status).JSON(fiber.Map{"message": err.Error()})
}

// ErrorHandler renders errors that escape a handler, including fiber's own.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"message": strings.ToLower(fiberErr.Message)})
	}

	return respondError(c, logger.New("handlers").File("errors"), err)
}

// clientIP prefers the proxy headers over the socket address.
func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return c.IP()
}
