package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
)

// memoryStore is an in-memory stand-in for the gorm repositories with the
// same access rules.
type memoryStore struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]models.Job
	apps   map[uuid.UUID]models.Application
	order  []uuid.UUID
	parsed map[uuid.UUID]models.ParsedResume
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:   map[uuid.UUID]models.Job{},
		apps:   map[uuid.UUID]models.Application{},
		parsed: map[uuid.UUID]models.ParsedResume{},
	}
}

func (m *memoryStore) addJob(recruiter models.Session, title string) models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := models.Job{ID: uuid.New(), RecruiterID: recruiter.ProfileID, Title: title, Description: title + " role", Status: models.JobOpen}
	m.jobs[job.ID] = job
	return job
}

func (m *memoryStore) addApplication(job models.Job, name, resume string, status models.ApplicationStatus) models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	app := models.Application{ID: uuid.New(), JobID: job.ID, CandidateID: uuid.New(), CandidateName: name, ResumeText: resume, Status: status}
	m.apps[app.ID] = app
	m.order = append(m.order, app.ID)
	return app
}

func (m *memoryStore) app(id uuid.UUID) models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apps[id]
}

func (m *memoryStore) withJob(app models.Application) *models.Application {
	app.Job = m.jobs[app.JobID]
	return &app
}

func (m *memoryStore) canAccess(session models.Session, app *models.Application) bool {
	switch {
	case session.IsSystem():
		return true
	case session.IsCandidate():
		return app.CandidateID == session.ProfileID
	case session.IsRecruiter():
		return app.Job.RecruiterID == session.ProfileID
	}
	return false
}

type memoryApplicationRepo struct {
	*memoryStore
	failSave map[uuid.UUID]bool
}

func (r *memoryApplicationRepo) Create(_ context.Context, session models.Session, app *models.Application) error {
	if !session.IsCandidate() {
		return apperr.ErrForbidden
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[app.JobID]
	if !ok {
		return apperr.ErrNotFound
	}
	if job.Status != models.JobOpen {
		return fmt.Errorf("%w: job is closed", apperr.ErrInvalidInput)
	}
	for _, existing := range r.apps {
		if existing.JobID == app.JobID && existing.CandidateID == session.ProfileID {
			return fmt.Errorf("%w: you have already applied to this job", apperr.ErrPersistenceFailed)
		}
	}

	app.CandidateID = session.ProfileID
	app.CandidateName = session.Name
	app.CandidateEmail = session.Email
	app.Status = models.StatusPending
	r.apps[app.ID] = *app
	r.order = append(r.order, app.ID)
	return nil
}

func (r *memoryApplicationRepo) FindByID(_ context.Context, session models.Session, id uuid.UUID) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	full := r.withJob(app)
	if !r.canAccess(session, full) {
		return nil, apperr.ErrForbidden
	}
	return full, nil
}

func (r *memoryApplicationRepo) ListByJob(_ context.Context, session models.Session, jobID uuid.UUID) ([]models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if !session.IsSystem() && !(session.IsRecruiter() && job.RecruiterID == session.ProfileID) {
		return nil, apperr.ErrForbidden
	}

	var out []models.Application
	for _, id := range r.order {
		if app := r.apps[id]; app.JobID == jobID {
			out = append(out, *r.withJob(app))
		}
	}
	return out, nil
}

func (r *memoryApplicationRepo) ListMine(_ context.Context, session models.Session) ([]models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Application
	for _, id := range r.order {
		app := r.withJob(r.apps[id])
		if !session.IsSystem() && r.canAccess(session, app) {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (r *memoryApplicationRepo) UpdateStatus(ctx context.Context, session models.Session, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error) {
	if !session.IsRecruiter() {
		return nil, apperr.ErrForbidden
	}
	app, err := r.FindByID(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, app.Status, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.apps[id]
	stored.Status = status
	r.apps[id] = stored
	app.Status = status
	return app, nil
}

func (r *memoryApplicationRepo) SaveReview(ctx context.Context, session models.Session, id uuid.UUID, review *models.AIReview) error {
	if _, err := r.FindByID(ctx, session, id); err != nil {
		return err
	}
	if session.IsCandidate() {
		return apperr.ErrForbidden
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave[id] {
		return fmt.Errorf("%w: save review: connection reset", apperr.ErrPersistenceFailed)
	}

	payload, err := json.Marshal(review)
	if err != nil {
		return err
	}
	stored := r.apps[id]
	score := review.MatchScore
	stored.AIReview = payload
	stored.MatchScore = &score
	stored.Analyzed = true
	if stored.Status == models.StatusPending {
		stored.Status = models.StatusReviewing
	}
	r.apps[id] = stored
	return nil
}

func (r *memoryApplicationRepo) FindUnanalyzed(_ context.Context, session models.Session, limit int) ([]models.Application, error) {
	if !session.IsSystem() {
		return nil, apperr.ErrForbidden
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Application
	for _, id := range r.order {
		if app := r.apps[id]; !app.Analyzed && app.Status == models.StatusPending && len(out) < limit {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *memoryApplicationRepo) ListAll(_ context.Context, session models.Session) ([]models.Application, error) {
	if !session.IsSystem() {
		return nil, apperr.ErrForbidden
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Application
	for _, id := range r.order {
		out = append(out, r.apps[id])
	}
	return out, nil
}

type memoryJobRepo struct {
	*memoryStore
}

func (r *memoryJobRepo) Create(_ context.Context, session models.Session, job *models.Job) error {
	if !session.IsRecruiter() {
		return apperr.ErrForbidden
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job.ID = uuid.New()
	job.RecruiterID = session.ProfileID
	job.Status = models.JobOpen
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepo) FindByID(_ context.Context, _ models.Session, id uuid.UUID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &job, nil
}

func (r *memoryJobRepo) List(_ context.Context, _ models.Session, status models.JobStatus) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, job := range r.jobs {
		if status == "" || job.Status == status {
			out = append(out, job)
		}
	}
	return out, nil
}

func (r *memoryJobRepo) Close(_ context.Context, session models.Session, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if job.RecruiterID != session.ProfileID {
		return apperr.ErrForbidden
	}
	job.Status = models.JobClosed
	r.jobs[id] = job
	return nil
}

type memoryParsedRepo struct {
	*memoryStore
}

func (r *memoryParsedRepo) Upsert(_ context.Context, session models.Session, applicationID uuid.UUID, resume models.StructuredResume) (*models.ParsedResume, error) {
	if session.IsCandidate() {
		return nil, apperr.ErrForbidden
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	parsed, ok := r.parsed[applicationID]
	if !ok {
		parsed = models.ParsedResume{ID: uuid.New(), ApplicationID: applicationID}
	}
	parsed.Structured = datatypes.NewJSONType(resume)
	parsed.Degraded = resume.Degraded()
	r.parsed[applicationID] = parsed
	return &parsed, nil
}

// scriptedReviewer answers by candidate name and counts concurrent calls.
type scriptedReviewer struct {
	mu      sync.Mutex
	scores  map[string]float64
	fail    map[string]error
	calls   []ReviewRequest
	active  int
	maxSeen int
	barrier chan struct{}
}

func (s *scriptedReviewer) Review(ctx context.Context, req ReviewRequest) (*models.AIReview, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.active++
	if s.active > s.maxSeen {
		s.maxSeen = s.active
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if s.barrier != nil {
		select {
		case <-s.barrier:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := s.fail[req.CandidateName]; ok {
		return nil, err
	}
	return &models.AIReview{
		MatchScore:       s.scores[req.CandidateName],
		MatchingKeywords: []string{"Go"},
		MissingKeywords:  []string{},
		USP:              []string{},
		Analysis:         "reviewed " + req.CandidateName,
	}, nil
}

func newSession(role models.Role) models.Session {
	return models.Session{ProfileID: uuid.New(), Role: role, Name: string(role) + " user", Email: string(role) + "@example.com"}
}
