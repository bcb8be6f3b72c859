package middleware

import (
	"time"

	"waiverdesk/config"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	PrincipalLocal  = "principal"
	requestIDKey    = "requestID"
	RequestIDHeader = "X-Request-ID"
)

type Middleware struct {
	tokenService *services.TokenService
	config       config.Config
	log          logger.Logger
}

func New(tokenService *services.TokenService, config config.Config) Middleware {
	return Middleware{
		tokenService: tokenService,
		config:       config,
		log:          logger.New("middleware"),
	}
}

// RequestID tags every request with a time-ordered id, reusing one sent by a
// proxy in front of the server.
func (m Middleware) RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			generated, err := uuid.NewV7()
			if err != nil {
				generated = uuid.New()
			}
			id = generated.String()
		}

		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// AuthRequired rejects requests without a valid admin_token cookie and stores
// the verified principal in locals.
func (m Middleware) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(services.TokenCookieName)
		principal, ok := m.tokenService.VerifyContext(c.Context(), token)
		if !ok {
			if token != "" {
				m.log.Function("AuthRequired").Debug("rejected admin token", "path", c.Path(), "requestID", RequestIDFrom(c))
			}
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"message": ErrUnauthorized.Error()})
		}

		c.Locals(PrincipalLocal, principal)
		return c.Next()
	}
}

// SetSessionCookie writes the admin_token cookie for a freshly issued token.
func (m Middleware) SetSessionCookie(c *fiber.Ctx, token string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     services.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   m.config.SecurityCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (m Middleware) ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     services.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   m.config.SecurityCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	principal, ok := c.Locals(PrincipalLocal).(Principal)
	return principal, ok && principal.Username != ""
}

func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
