package web

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/dukex/leadion/pkg/auth"
	"github.com/dukex/leadion/pkg/models"
)

const (
	userLocal  = "auth_user"
	tokenLocal = "auth_token"
)

// RequireAuth validates the bearer token on every request and stores the
// resolved user in the request locals.
func RequireAuth(authService *auth.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return unauthorized(c, "missing bearer token")
		}

		session, err := authService.Session(c.Context(), token)
		if err != nil {
			return handleAuthError(c, err)
		}

		user, err := authService.User(c.Context(), session)
		if err != nil {
			return handleAuthError(c, err)
		}

		if user.Status != models.UserActive {
			return handleAuthError(c, auth.ErrAccountDisabled)
		}

		c.Locals(userLocal, user)
		c.Locals(tokenLocal, token)

		return c.Next()
	}
}

func bearerToken(c fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// currentUser returns the authenticated user stored by RequireAuth.
func currentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)

	return user
}

func currentToken(c fiber.Ctx) string {
	token, _ := c.Locals(tokenLocal).(string)

	return token
}
