package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/services"
)

type ReviewHandler struct {
	reviews services.ReviewService
	logger  *zap.Logger
}

func NewReviewHandler(reviews services.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger,
	}
}

// HandleReview handles POST /applications/:id/review
func (h *ReviewHandler) HandleReview(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	app, err := h.reviews.ReviewApplication(c.UserContext(), sessionFrom(c), id)
	if err != nil {
		return err
	}

	return c.JSON(models.NewApplicationResponse(app))
}

// HandleReviewAll handles POST /jobs/:id/review-all. Per-application failures
// are reported in the body; the request itself still succeeds.
func (h *ReviewHandler) HandleReviewAll(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	results, err := h.reviews.ReviewAll(c.UserContext(), sessionFrom(c), jobID)
	if err != nil {
		return err
	}

	resp := models.BatchReviewResponse{
		JobID:   jobID.String(),
		Total:   len(results),
		Results: make([]models.BatchReviewItem, 0, len(results)),
	}
	for _, r := range results {
		item := models.BatchReviewItem{
			ApplicationID: r.ApplicationID.String(),
			Status:        "reviewed",
			Review:        r.Review,
		}
		if r.Err != nil {
			item.Status = "failed"
			item.Error = r.Err.Error()
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, item)
	}

	return c.JSON(resp)
}

// HandleSimilar handles GET /jobs/:id/similar?limit=5
func (h *ReviewHandler) HandleSimilar(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 5)
	if limit < 1 || limit > 50 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 50",
		})
	}

	candidates, err := h.reviews.SimilarCandidates(c.UserContext(), sessionFrom(c), jobID, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"job_id":     jobID,
		"candidates": candidates,
	})
}

type insightEvent struct {
	Delta string `json:"delta"`
	Text  string `json:"text"`
}

// HandleInsightStream handles GET /applications/:id/insights/stream as
// Server-Sent Events: one "data:" event per fragment, then "event: done" or
// "event: error". A client that goes away cancels the upstream request.
func (h *ReviewHandler) HandleInsightStream(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	fragments, err := h.reviews.StreamInsight(ctx, sessionFrom(c), id)
	if err != nil {
		cancel()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	log := h.logger.With(zap.String("application_id", id.String()))

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		sent := 0
		text, streamErr := services.Accumulate(fragments, func(text string) {
			if ctx.Err() != nil {
				return
			}
			writeEvent(w, "", insightEvent{Delta: text[sent:], Text: text})
			sent = len(text)
			if err := w.Flush(); err != nil {
				log.Debug("insight client disconnected", zap.Error(err))
				cancel()
			}
		})

		if ctx.Err() != nil {
			return
		}

		if streamErr != nil {
			log.Warn("insight stream failed", zap.Error(streamErr), zap.Int("partial_length", len(text)))
			writeEvent(w, "error", fiber.Map{
				"error": streamErr.Error(),
				"code":  apperr.StatusCode(streamErr),
				"text":  text,
			})
		} else {
			writeEvent(w, "done", insightEvent{Text: text})
		}
		_ = w.Flush()
	}))

	return nil
}

func writeEvent(w *bufio.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
