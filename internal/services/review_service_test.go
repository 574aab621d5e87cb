package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
)

type capturingStreamer struct {
	prompt    string
	fragments []string
}

func (c *capturingStreamer) Stream(_ context.Context, prompt string) (<-chan Fragment, error) {
	c.prompt = prompt
	ch := make(chan Fragment, len(c.fragments))
	for _, f := range c.fragments {
		ch <- Fragment{Text: f}
	}
	close(ch)
	return ch, nil
}

type reviewFixture struct {
	store     *memoryStore
	apps      *memoryApplicationRepo
	reviewer  *scriptedReviewer
	recruiter models.Session
	job       models.Job
}

func newReviewFixture() *reviewFixture {
	store := newMemoryStore()
	recruiter := newSession(models.RoleRecruiter)
	return &reviewFixture{
		store:     store,
		apps:      &memoryApplicationRepo{memoryStore: store, failSave: map[uuid.UUID]bool{}},
		reviewer:  &scriptedReviewer{scores: map[string]float64{}, fail: map[string]error{}},
		recruiter: recruiter,
		job:       store.addJob(recruiter, "Backend Engineer"),
	}
}

func (f *reviewFixture) service(streamer InsightStreamer, indexer ResumeIndexer, concurrency int) ReviewService {
	return NewReviewService(f.apps, &memoryJobRepo{memoryStore: f.store}, f.reviewer, streamer, indexer,
		ReviewServiceConfig{InsightResumeLimit: 20, Concurrency: concurrency}, zap.NewNop())
}

func TestReviewApplicationMovesPendingToReviewing(t *testing.T) {
	f := newReviewFixture()
	app := f.store.addApplication(f.job, "Alice", "Go developer", models.StatusPending)
	f.reviewer.scores["Alice"] = 87

	got, err := f.service(nil, nil, 1).ReviewApplication(context.Background(), f.recruiter, app.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusReviewing, got.Status)
	assert.True(t, got.Analyzed)
	require.NotNil(t, got.MatchScore)
	assert.Equal(t, 87.0, *got.MatchScore)

	review, err := got.Review()
	require.NoError(t, err)
	assert.Equal(t, "reviewed Alice", review.Analysis)

	require.Len(t, f.reviewer.calls, 1)
	assert.Equal(t, "Backend Engineer", f.reviewer.calls[0].Job.Title)
}

func TestReviewApplicationKeepsDecidedStatus(t *testing.T) {
	f := newReviewFixture()
	app := f.store.addApplication(f.job, "Alice", "Go developer", models.StatusSelected)

	got, err := f.service(nil, nil, 1).ReviewApplication(context.Background(), f.recruiter, app.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusSelected, got.Status)
	assert.True(t, got.Analyzed)
}

func TestReviewApplicationAccess(t *testing.T) {
	f := newReviewFixture()
	app := f.store.addApplication(f.job, "Alice", "Go developer", models.StatusPending)
	svc := f.service(nil, nil, 1)

	_, err := svc.ReviewApplication(context.Background(), newSession(models.RoleCandidate), app.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.ReviewApplication(context.Background(), newSession(models.RoleRecruiter), app.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.ReviewApplication(context.Background(), f.recruiter, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Empty(t, f.reviewer.calls)
}

func TestReviewApplicationAnalysisFailureLeavesApplicationUntouched(t *testing.T) {
	f := newReviewFixture()
	app := f.store.addApplication(f.job, "Alice", "Go developer", models.StatusPending)
	f.reviewer.fail["Alice"] = apperr.Analysis("inference endpoint returned status 500", nil)

	_, err := f.service(nil, nil, 1).ReviewApplication(context.Background(), f.recruiter, app.ID)

	assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)
	stored := f.store.app(app.ID)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.False(t, stored.Analyzed)
	assert.Nil(t, stored.MatchScore)
}

func TestReviewAllIsolatesFailures(t *testing.T) {
	f := newReviewFixture()
	first := f.store.addApplication(f.job, "Alice", "Go developer", models.StatusPending)
	second := f.store.addApplication(f.job, "Bob", "Java developer", models.StatusPending)
	third := f.store.addApplication(f.job, "Carol", "Rust developer", models.StatusPending)

	f.reviewer.scores["Alice"] = 90
	f.reviewer.scores["Carol"] = 40
	f.reviewer.fail["Bob"] = apperr.Analysis("inference request failed", nil)

	results, err := f.service(nil, nil, 3).ReviewAll(context.Background(), f.recruiter, f.job.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, first.ID, results[0].ApplicationID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 90.0, results[0].Review.MatchScore)

	assert.Equal(t, second.ID, results[1].ApplicationID)
	assert.ErrorIs(t, results[1].Err, apperr.ErrAnalysisFailed)
	assert.Nil(t, results[1].Review)

	assert.Equal(t, third.ID, results[2].ApplicationID)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 40.0, results[2].Review.MatchScore)

	assert.True(t, f.store.app(first.ID).Analyzed)
	assert.False(t, f.store.app(second.ID).Analyzed)
	assert.Equal(t, models.StatusPending, f.store.app(second.ID).Status)
	assert.True(t, f.store.app(third.ID).Analyzed)
}

func TestReviewAllReportsPersistenceFailure(t *testing.T) {
	f := newReviewFixture()
	first := f.store.addApplication(f.job, "Alice", "Go developer", models.StatusPending)
	second := f.store.addApplication(f.job, "Bob", "Java developer", models.StatusPending)
	f.apps.failSave[second.ID] = true

	results, err := f.service(nil, nil, 2).ReviewAll(context.Background(), f.recruiter, f.job.ID)
	require.NoError(t, err)

	assert.NoError(t, results[0].Err)
	assert.True(t, f.store.app(first.ID).Analyzed)
	assert.ErrorIs(t, results[1].Err, apperr.ErrPersistenceFailed)
}

func TestReviewAllBoundsConcurrency(t *testing.T) {
	f := newReviewFixture()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		f.store.addApplication(f.job, name, "resume of "+name, models.StatusPending)
	}
	f.reviewer.barrier = make(chan struct{})

	done := make(chan []BatchResult)
	go func() {
		results, _ := f.service(nil, nil, 2).ReviewAll(context.Background(), f.recruiter, f.job.ID)
		done <- results
	}()

	require.Eventually(t, func() bool {
		f.reviewer.mu.Lock()
		defer f.reviewer.mu.Unlock()
		return f.reviewer.active == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	close(f.reviewer.barrier)

	results := <-done
	assert.Len(t, results, 5)
	assert.Equal(t, 2, f.reviewer.maxSeen)
}

func TestReviewAllRequiresJobOwner(t *testing.T) {
	f := newReviewFixture()
	f.store.addApplication(f.job, "Alice", "Go developer", models.StatusPending)

	_, err := f.service(nil, nil, 1).ReviewAll(context.Background(), newSession(models.RoleRecruiter), f.job.ID)

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, f.reviewer.calls)
}

func TestStreamInsightCapsResume(t *testing.T) {
	f := newReviewFixture()
	app := f.store.addApplication(f.job, "Alice", strings.Repeat("r", 50), models.StatusPending)
	streamer := &capturingStreamer{fragments: []string{"Strong ", "fit."}}

	ch, err := f.service(streamer, nil, 1).StreamInsight(context.Background(), f.recruiter, app.ID)
	require.NoError(t, err)

	text, err := Accumulate(ch, nil)
	require.NoError(t, err)
	assert.Equal(t, "Strong fit.", text)

	assert.Contains(t, streamer.prompt, strings.Repeat("r", 20))
	assert.NotContains(t, streamer.prompt, strings.Repeat("r", 21))
	assert.Contains(t, streamer.prompt, "Backend Engineer")
}

func TestStreamInsightWithoutStreamer(t *testing.T) {
	f := newReviewFixture()
	app := f.store.addApplication(f.job, "Alice", "Go developer", models.StatusPending)

	_, err := f.service(nil, nil, 1).StreamInsight(context.Background(), f.recruiter, app.ID)

	assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)
}

func TestSimilarCandidatesAccess(t *testing.T) {
	f := newReviewFixture()
	svc := f.service(nil, nil, 1)

	_, err := svc.SimilarCandidates(context.Background(), newSession(models.RoleRecruiter), f.job.ID, 5)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.SimilarCandidates(context.Background(), f.recruiter, f.job.ID, 5)
	assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)

	_, err = svc.SimilarCandidates(context.Background(), f.recruiter, uuid.New(), 5)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSimilarCandidatesUsesIndex(t *testing.T) {
	f := newReviewFixture()
	appID := uuid.NewString()
	store := &fakeVectorStore{hits: []SearchResult{{ApplicationID: appID, Score: 0.8, Text: "Go developer"}}}
	indexer := NewResumeIndexer(&stubGemini{}, store, zap.NewNop())

	got, err := f.service(nil, indexer, 1).SimilarCandidates(context.Background(), f.recruiter, f.job.ID, 3)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, appID, got[0].ApplicationID)
	assert.Equal(t, f.job.ID, store.jobID)
}
