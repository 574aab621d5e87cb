package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Routes struct {
	Profiles     *ProfileHandler
	Jobs         *JobHandler
	Applications *ApplicationHandler
	Reviews      *ReviewHandler
}

// Register mounts the API under api. Everything except health and
// registration sits behind auth.
func (r Routes) Register(api fiber.Router, auth fiber.Handler) {
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})
	api.Post("/profiles", r.Profiles.HandleRegister)

	secured := api.Group("", auth)
	secured.Get("/me", r.Profiles.HandleMe)

	secured.Post("/jobs", r.Jobs.HandleCreate)
	secured.Get("/jobs", r.Jobs.HandleList)
	secured.Get("/jobs/:id", r.Jobs.HandleGet)
	secured.Post("/jobs/:id/close", r.Jobs.HandleClose)
	secured.Post("/jobs/:id/applications", r.Applications.HandleSubmit)
	secured.Get("/jobs/:id/applications", r.Applications.HandleListForJob)
	secured.Post("/jobs/:id/review-all", r.Reviews.HandleReviewAll)
	secured.Get("/jobs/:id/similar", r.Reviews.HandleSimilar)

	secured.Get("/applications", r.Applications.HandleListMine)
	secured.Get("/applications/:id", r.Applications.HandleGet)
	secured.Get("/applications/:id/structured", r.Applications.HandleStructured)
	secured.Post("/applications/:id/parse", r.Applications.HandleParse)
	secured.Post("/applications/:id/review", r.Reviews.HandleReview)
	secured.Get("/applications/:id/insights/stream", r.Reviews.HandleInsightStream)
	secured.Post("/applications/:id/status", r.Applications.HandleUpdateStatus)

	secured.Post("/resumes/structure", r.Applications.HandleStructureResume)
}
