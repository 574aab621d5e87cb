package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/repositories"
)

// SubmitInput carries a resume either as an uploaded file or as pasted text.
// The upload wins when both are present.
type SubmitInput struct {
	Upload      *Upload
	ResumeText  string
	CoverLetter string
}

// Enqueuer hands an application to background analysis.
type Enqueuer interface {
	Enqueue(applicationID uuid.UUID)
}

type ApplicationService interface {
	Submit(ctx context.Context, session models.Session, jobID uuid.UUID, in SubmitInput) (*models.Application, error)
	Get(ctx context.Context, session models.Session, id uuid.UUID) (*models.Application, error)
	ListForJob(ctx context.Context, session models.Session, jobID uuid.UUID) ([]models.Application, error)
	ListMine(ctx context.Context, session models.Session) ([]models.Application, error)
	UpdateStatus(ctx context.Context, session models.Session, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error)
	Structure(ctx context.Context, session models.Session, id uuid.UUID) (models.StructuredResume, error)
	ParseAndSave(ctx context.Context, session models.Session, id uuid.UUID) (*models.ParsedResume, error)
	StructureUpload(upload Upload) (models.StructuredResume, error)
}

type applicationService struct {
	appRepo    repositories.ApplicationRepository
	parsedRepo repositories.ParsedResumeRepository
	extractor  ExtractorService
	structurer *Structurer
	storage    StorageService
	queue      Enqueuer
	logger     *zap.Logger
}

func NewApplicationService(
	appRepo repositories.ApplicationRepository,
	parsedRepo repositories.ParsedResumeRepository,
	extractor ExtractorService,
	structurer *Structurer,
	storage StorageService,
	queue Enqueuer,
	logger *zap.Logger,
) ApplicationService {
	return &applicationService{
		appRepo:    appRepo,
		parsedRepo: parsedRepo,
		extractor:  extractor,
		structurer: structurer,
		storage:    storage,
		queue:      queue,
		logger:     logger,
	}
}

func (s *applicationService) Submit(ctx context.Context, session models.Session, jobID uuid.UUID, in SubmitInput) (*models.Application, error) {
	if !session.IsCandidate() {
		return nil, fmt.Errorf("submit application: %w", apperr.ErrForbidden)
	}

	resumeText := strings.TrimSpace(in.ResumeText)
	var resumeFile *string

	if in.Upload != nil {
		text, err := s.extractor.Extract(*in.Upload)
		if err != nil {
			return nil, err
		}
		resumeText = text

		if s.storage != nil {
			filename, err := s.storage.SaveResume(*in.Upload)
			if err != nil {
				return nil, err
			}
			resumeFile = &filename
		}
	}

	if resumeText == "" {
		return nil, fmt.Errorf("%w: a resume file or resume_text is required", apperr.ErrInvalidInput)
	}

	app := &models.Application{
		ID:         uuid.New(),
		JobID:      jobID,
		ResumeText: resumeText,
		ResumeFile: resumeFile,
	}
	if cover := strings.TrimSpace(in.CoverLetter); cover != "" {
		app.CoverLetter = &cover
	}

	if err := s.appRepo.Create(ctx, session, app); err != nil {
		if resumeFile != nil {
			if delErr := s.storage.DeleteFile(*resumeFile); delErr != nil {
				s.logger.Warn("failed to clean up resume file", zap.String("file", *resumeFile), zap.Error(delErr))
			}
		}
		return nil, err
	}

	s.logger.Info("application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("job_id", jobID.String()),
		zap.Int("resume_length", len(resumeText)),
	)

	if s.queue != nil {
		s.queue.Enqueue(app.ID)
	}

	return app, nil
}

func (s *applicationService) Get(ctx context.Context, session models.Session, id uuid.UUID) (*models.Application, error) {
	return s.appRepo.FindByID(ctx, session, id)
}

func (s *applicationService) ListForJob(ctx context.Context, session models.Session, jobID uuid.UUID) ([]models.Application, error) {
	return s.appRepo.ListByJob(ctx, session, jobID)
}

func (s *applicationService) ListMine(ctx context.Context, session models.Session) ([]models.Application, error) {
	return s.appRepo.ListMine(ctx, session)
}

func (s *applicationService) UpdateStatus(ctx context.Context, session models.Session, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, status)
	}

	app, err := s.appRepo.UpdateStatus(ctx, session, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("application status updated",
		zap.String("application_id", id.String()),
		zap.String("status", string(status)),
	)
	return app, nil
}

// Structure recomputes the structured view on every call.
func (s *applicationService) Structure(ctx context.Context, session models.Session, id uuid.UUID) (models.StructuredResume, error) {
	app, err := s.appRepo.FindByID(ctx, session, id)
	if err != nil {
		return models.StructuredResume{}, err
	}
	return s.structurer.Structure(app.ResumeText), nil
}

func (s *applicationService) ParseAndSave(ctx context.Context, session models.Session, id uuid.UUID) (*models.ParsedResume, error) {
	if session.IsCandidate() {
		return nil, fmt.Errorf("parse resume: %w", apperr.ErrForbidden)
	}

	app, err := s.appRepo.FindByID(ctx, session, id)
	if err != nil {
		return nil, err
	}

	structured := s.structurer.Structure(app.ResumeText)
	parsed, err := s.parsedRepo.Upsert(ctx, session, app.ID, structured)
	if err != nil {
		return nil, err
	}

	if parsed.Degraded {
		s.logger.Warn("parsed resume stored in degraded form", zap.String("application_id", id.String()))
	}
	return parsed, nil
}

func (s *applicationService) StructureUpload(upload Upload) (models.StructuredResume, error) {
	text, err := s.extractor.Extract(upload)
	if err != nil {
		return models.StructuredResume{}, err
	}
	return s.structurer.Structure(text), nil
}
