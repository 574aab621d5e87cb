package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
)

type stubGemini struct {
	response   string
	err        error
	lastPrompt string
	calls      int
}

func (s *stubGemini) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, s.err
}

func (s *stubGemini) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubGemini) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, _ int) (string, error) {
	return s.GenerateText(ctx, prompt, temperature)
}

func sampleReviewRequest() ReviewRequest {
	return ReviewRequest{
		Job: models.JobContext{
			Title:        "Backend Engineer",
			Description:  "Build APIs in Go",
			Requirements: "Go, PostgreSQL",
		},
		CandidateName: "Jane Doe",
		Resume:        "Skills: Go, PostgreSQL, Kafka",
		CoverLetter:   "I love Go.",
	}
}

func TestParseReview(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *models.AIReview
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"match_score": 82, "matching_keywords": ["Go"], "missing_keywords": ["Rust"], "usp": ["OSS"], "analysis": "Good", "recommendation": "Hire"}`,
			want: &models.AIReview{MatchScore: 82, MatchingKeywords: []string{"Go"}, MissingKeywords: []string{"Rust"}, USP: []string{"OSS"}, Analysis: "Good", Recommendation: "Hire"},
		},
		{
			name: "markdown fenced with string score",
			raw:  "Here you go:\n```json\n{\"match_score\": \"64%\", \"analysis\": \" ok \"}\n```",
			want: &models.AIReview{MatchScore: 64, MatchingKeywords: []string{}, MissingKeywords: []string{}, USP: []string{}, Analysis: "ok"},
		},
		{
			name: "score clamped high",
			raw:  `{"match_score": 140}`,
			want: &models.AIReview{MatchScore: 100, MatchingKeywords: []string{}, MissingKeywords: []string{}, USP: []string{}},
		},
		{
			name: "score clamped low",
			raw:  `{"match_score": -3, "usp": null}`,
			want: &models.AIReview{MatchScore: 0, MatchingKeywords: []string{}, MissingKeywords: []string{}, USP: []string{}},
		},
		{name: "missing score", raw: `{"analysis": "no score"}`, wantErr: true},
		{name: "non numeric score", raw: `{"match_score": "high"}`, wantErr: true},
		{name: "wrong keyword type", raw: `{"match_score": 10, "matching_keywords": "Go"}`, wantErr: true},
		{name: "not json", raw: `the model refused`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseReview(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeminiReviewerCapsResume(t *testing.T) {
	stub := &stubGemini{response: `{"match_score": 70}`}
	reviewer := NewGeminiReviewer(stub, 10, 1, zap.NewNop())

	req := sampleReviewRequest()
	req.Resume = strings.Repeat("x", 50)

	review, err := reviewer.Review(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 70.0, review.MatchScore)

	assert.Contains(t, stub.lastPrompt, strings.Repeat("x", 10))
	assert.NotContains(t, stub.lastPrompt, strings.Repeat("x", 11))
	assert.Contains(t, stub.lastPrompt, "Backend Engineer")
	assert.Contains(t, stub.lastPrompt, "I love Go.")
}

func TestGeminiReviewerFailure(t *testing.T) {
	stub := &stubGemini{err: errors.New("quota exceeded")}

	_, err := NewGeminiReviewer(stub, 100, 1, zap.NewNop()).Review(context.Background(), sampleReviewRequest())

	assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestInferenceReviewer(t *testing.T) {
	var got inferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"match_score": 91.5, "matching_keywords": ["Go", "PostgreSQL"], "missing_keywords": [], "usp": ["Kafka"], "analysis": "Strong", "recommendation": "Strong Hire"}`))
	}))
	defer srv.Close()

	req := sampleReviewRequest()
	req.Resume = "0123456789abcdef"
	reviewer := NewInferenceReviewer(srv.URL, "secret", time.Second, 8, zap.NewNop())

	review, err := reviewer.Review(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 91.5, review.MatchScore)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, review.MatchingKeywords)
	assert.Equal(t, "Strong Hire", review.Recommendation)

	assert.Equal(t, "Backend Engineer", got.JobTitle)
	assert.Equal(t, "Go, PostgreSQL", got.Requirements)
	assert.Equal(t, "Jane Doe", got.CandidateName)
	assert.Equal(t, "01234567", got.Resume)
	assert.Equal(t, "I love Go.", got.CoverLetter)
}

func TestInferenceReviewerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewInferenceReviewer(srv.URL, "", time.Second, 100, zap.NewNop()).Review(context.Background(), sampleReviewRequest())

	var ae *apperr.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Reason, "500")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 10))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 0))
}
