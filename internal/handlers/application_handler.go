package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/services"
)

type ApplicationHandler struct {
	applications services.ApplicationService
	maxFileSize  int64
}

func NewApplicationHandler(applications services.ApplicationService, maxFileSize int64) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		maxFileSize:  maxFileSize,
	}
}

// HandleSubmit handles POST /jobs/:id/applications. The resume comes either
// as a multipart "resume" file or as resume_text.
func (h *ApplicationHandler) HandleSubmit(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req models.SubmitApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	in := services.SubmitInput{
		ResumeText:  req.ResumeText,
		CoverLetter: req.CoverLetter,
	}

	if file, err := c.FormFile("resume"); err == nil {
		upload, err := h.readUpload(file)
		if err != nil {
			return err
		}
		in.Upload = upload
	}

	app, err := h.applications.Submit(c.UserContext(), sessionFrom(c), jobID, in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.NewApplicationResponse(app))
}

// HandleListForJob handles GET /jobs/:id/applications
func (h *ApplicationHandler) HandleListForJob(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	apps, err := h.applications.ListForJob(c.UserContext(), sessionFrom(c), jobID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"applications": toResponses(apps)})
}

// HandleListMine handles GET /applications
func (h *ApplicationHandler) HandleListMine(c *fiber.Ctx) error {
	apps, err := h.applications.ListMine(c.UserContext(), sessionFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"applications": toResponses(apps)})
}

// HandleGet handles GET /applications/:id
func (h *ApplicationHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	app, err := h.applications.Get(c.UserContext(), sessionFrom(c), id)
	if err != nil {
		return err
	}

	return c.JSON(models.NewApplicationResponse(app))
}

// HandleStructured handles GET /applications/:id/structured
func (h *ApplicationHandler) HandleStructured(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	structured, err := h.applications.Structure(c.UserContext(), sessionFrom(c), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"application_id": id,
		"degraded":       structured.Degraded(),
		"structured":     structured,
	})
}

// HandleParse handles POST /applications/:id/parse
func (h *ApplicationHandler) HandleParse(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	parsed, err := h.applications.ParseAndSave(c.UserContext(), sessionFrom(c), id)
	if err != nil {
		return err
	}

	return c.JSON(parsed)
}

// HandleUpdateStatus handles POST /applications/:id/status
func (h *ApplicationHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	app, err := h.applications.UpdateStatus(c.UserContext(), sessionFrom(c), id, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(models.NewApplicationResponse(app))
}

// HandleStructureResume handles POST /resumes/structure
func (h *ApplicationHandler) HandleStructureResume(c *fiber.Ctx) error {
	file, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume file is required",
		})
	}

	upload, err := h.readUpload(file)
	if err != nil {
		return err
	}

	structured, err := h.applications.StructureUpload(*upload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"filename":   upload.Filename,
		"degraded":   structured.Degraded(),
		"structured": structured,
	})
}

func (h *ApplicationHandler) readUpload(file *multipart.FileHeader) (*services.Upload, error) {
	if file.Size > h.maxFileSize {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Resume file too large. Max size: %d bytes", h.maxFileSize))
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return &services.Upload{
		Filename:  file.Filename,
		MediaType: file.Header.Get(fiber.HeaderContentType),
		Data:      data,
	}, nil
}

func toResponses(apps []models.Application) []models.ApplicationResponse {
	out := make([]models.ApplicationResponse, 0, len(apps))
	for i := range apps {
		out = append(out, models.NewApplicationResponse(&apps[i]))
	}
	return out
}
