package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/repositories"
)

type ProfileHandler struct {
	profiles repositories.ProfileRepository
}

func NewProfileHandler(profiles repositories.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// HandleRegister handles POST /profiles
func (h *ProfileHandler) HandleRegister(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "full_name is required",
		})
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "a valid email is required",
		})
	}

	if !req.Role.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "role must be recruiter or candidate",
		})
	}

	token, err := newAPIToken()
	if err != nil {
		return err
	}

	profile := &models.Profile{
		ID:       uuid.New(),
		FullName: req.FullName,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Role:     req.Role,
		APIToken: token,
	}

	if err := h.profiles.Create(c.UserContext(), profile); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.RegisterResponse{
		Profile:  profile,
		APIToken: token,
	})
}

// HandleMe handles GET /me
func (h *ProfileHandler) HandleMe(c *fiber.Ctx) error {
	session := sessionFrom(c)
	return c.JSON(fiber.Map{
		"id":        session.ProfileID,
		"full_name": session.Name,
		"email":     session.Email,
		"role":      session.Role,
	})
}

func newAPIToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
