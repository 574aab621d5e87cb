package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/repositories"
)

// BatchResult is the outcome of one application in a review-all run.
type BatchResult struct {
	ApplicationID uuid.UUID
	Review        *models.AIReview
	Err           error
}

type ReviewService interface {
	ReviewApplication(ctx context.Context, session models.Session, id uuid.UUID) (*models.Application, error)
	ReviewAll(ctx context.Context, session models.Session, jobID uuid.UUID) ([]BatchResult, error)
	StreamInsight(ctx context.Context, session models.Session, id uuid.UUID) (<-chan Fragment, error)
	SimilarCandidates(ctx context.Context, session models.Session, jobID uuid.UUID, limit int) ([]models.SimilarCandidate, error)
}

type reviewService struct {
	appRepo       repositories.ApplicationRepository
	jobRepo       repositories.JobRepository
	reviewer      Reviewer
	streamer      InsightStreamer
	indexer       ResumeIndexer
	promptBuilder *PromptBuilder
	insightLimit  int
	concurrency   int
	logger        *zap.Logger
}

type ReviewServiceConfig struct {
	InsightResumeLimit int
	Concurrency        int
}

// NewReviewService wires the review pipeline. streamer and indexer may be nil
// when the local model or the vector store is not configured.
func NewReviewService(
	appRepo repositories.ApplicationRepository,
	jobRepo repositories.JobRepository,
	reviewer Reviewer,
	streamer InsightStreamer,
	indexer ResumeIndexer,
	cfg ReviewServiceConfig,
	logger *zap.Logger,
) ReviewService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &reviewService{
		appRepo:       appRepo,
		jobRepo:       jobRepo,
		reviewer:      reviewer,
		streamer:      streamer,
		indexer:       indexer,
		promptBuilder: NewPromptBuilder(),
		insightLimit:  cfg.InsightResumeLimit,
		concurrency:   cfg.Concurrency,
		logger:        logger,
	}
}

// ReviewApplication runs the structured review for one application and
// persists it. A pending application moves to reviewing.
func (s *reviewService) ReviewApplication(ctx context.Context, session models.Session, id uuid.UUID) (*models.Application, error) {
	if session.IsCandidate() {
		return nil, fmt.Errorf("review application: %w", apperr.ErrForbidden)
	}

	app, err := s.appRepo.FindByID(ctx, session, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.review(ctx, session, app); err != nil {
		return nil, err
	}

	return s.appRepo.FindByID(ctx, session, id)
}

func (s *reviewService) review(ctx context.Context, session models.Session, app *models.Application) (*models.AIReview, error) {
	start := time.Now()

	review, err := s.reviewer.Review(ctx, ReviewRequest{
		Job:           app.Job.Context(),
		CandidateName: app.CandidateName,
		Resume:        app.ResumeText,
		CoverLetter:   app.CoverLetterText(),
	})
	if err != nil {
		s.logger.Warn("ai review failed",
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.appRepo.SaveReview(ctx, session, app.ID, review); err != nil {
		return nil, err
	}

	s.logger.Info("ai review saved",
		zap.String("application_id", app.ID.String()),
		zap.Float64("match_score", review.MatchScore),
		zap.Duration("took", time.Since(start)),
	)
	return review, nil
}

// ReviewAll reviews every application of the job concurrently. Each result is
// persisted as it completes and one failure does not cancel the others.
func (s *reviewService) ReviewAll(ctx context.Context, session models.Session, jobID uuid.UUID) ([]BatchResult, error) {
	if session.IsCandidate() {
		return nil, fmt.Errorf("review all: %w", apperr.ErrForbidden)
	}

	apps, err := s.appRepo.ListByJob(ctx, session, jobID)
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(apps))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range apps {
		app := &apps[i]
		results[i].ApplicationID = app.ID

		g.Go(func() error {
			review, err := s.review(ctx, session, app)
			results[i].Review = review
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("batch review finished",
		zap.String("job_id", jobID.String()),
		zap.Int("total", len(results)),
		zap.Int("failed", failed),
	)

	return results, nil
}

// StreamInsight starts a free-text insight for the application. The caller
// cancels by cancelling ctx.
func (s *reviewService) StreamInsight(ctx context.Context, session models.Session, id uuid.UUID) (<-chan Fragment, error) {
	if session.IsCandidate() {
		return nil, fmt.Errorf("stream insight: %w", apperr.ErrForbidden)
	}
	if s.streamer == nil {
		return nil, apperr.Analysis("local model is not configured", nil)
	}

	app, err := s.appRepo.FindByID(ctx, session, id)
	if err != nil {
		return nil, err
	}

	prompt := s.promptBuilder.BuildInsightPrompt(app.Job.Context(), TruncateRunes(app.ResumeText, s.insightLimit))
	return s.streamer.Stream(ctx, prompt)
}

func (s *reviewService) SimilarCandidates(ctx context.Context, session models.Session, jobID uuid.UUID, limit int) ([]models.SimilarCandidate, error) {
	if !session.IsRecruiter() {
		return nil, fmt.Errorf("similar candidates: %w", apperr.ErrForbidden)
	}

	job, err := s.jobRepo.FindByID(ctx, session, jobID)
	if err != nil {
		return nil, err
	}
	if job.RecruiterID != session.ProfileID {
		return nil, fmt.Errorf("similar candidates: %w", apperr.ErrForbidden)
	}

	if s.indexer == nil {
		return nil, apperr.Analysis("similarity search is not configured", nil)
	}

	candidates, err := s.indexer.SimilarForJob(ctx, job, limit)
	if err != nil {
		return nil, apperr.Analysis("similarity search failed", err)
	}
	return candidates, nil
}
