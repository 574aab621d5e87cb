package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/repositories"
)

type JobHandler struct {
	jobs repositories.JobRepository
}

func NewJobHandler(jobs repositories.JobRepository) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// HandleCreate handles POST /jobs
func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if strings.TrimSpace(req.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	if strings.TrimSpace(req.Description) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "description is required",
		})
	}

	job := &models.Job{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Requirements: strings.TrimSpace(req.Requirements),
	}

	if err := h.jobs.Create(c.UserContext(), sessionFrom(c), job); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleList handles GET /jobs?status=open
func (h *JobHandler) HandleList(c *fiber.Ctx) error {
	status := models.JobStatus(c.Query("status"))
	if status != "" && status != models.JobOpen && status != models.JobClosed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "status must be open or closed",
		})
	}

	jobs, err := h.jobs.List(c.UserContext(), sessionFrom(c), status)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"jobs": jobs})
}

// HandleGet handles GET /jobs/:id
func (h *JobHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	job, err := h.jobs.FindByID(c.UserContext(), sessionFrom(c), id)
	if err != nil {
		return err
	}

	return c.JSON(job)
}

// HandleClose handles POST /jobs/:id/close
func (h *JobHandler) HandleClose(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.jobs.Close(c.UserContext(), sessionFrom(c), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":     id,
		"status": models.JobClosed,
	})
}
