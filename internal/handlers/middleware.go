package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/repositories"
)

const sessionKey = "session"

// Auth resolves "Authorization: Bearer <api_token>" into a session stored in
// the request locals.
func Auth(profiles repositories.ProfileRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		profile, err := profiles.FindByToken(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
			}
			return err
		}

		c.Locals(sessionKey, models.NewSession(profile))
		return c.Next()
	}
}

func sessionFrom(c *fiber.Ctx) models.Session {
	session, _ := c.Locals(sessionKey).(models.Session)
	return session
}
