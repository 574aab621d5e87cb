package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/logger"
	"alfredoptarigan/applicant-tracker/internal/models"
)

// ReviewRequest is what a structured review is computed from.
type ReviewRequest struct {
	Job           models.JobContext
	CandidateName string
	Resume        string
	CoverLetter   string
}

// Reviewer produces a structured AIReview for one resume against one job.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (*models.AIReview, error)
}

//go:embed review.schema.json
var reviewSchemaJSON string

var reviewSchema = mustLoadSchema(reviewSchemaJSON)

func mustLoadSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid review schema: %v", err))
	}
	return schema
}

// geminiReviewer asks Gemini for the review JSON.
type geminiReviewer struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
	resumeLimit   int
	maxRetries    int
	logger        *zap.Logger
}

func NewGeminiReviewer(gemini GeminiService, resumeLimit, maxRetries int, logger *zap.Logger) Reviewer {
	return &geminiReviewer{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		resumeLimit:   resumeLimit,
		maxRetries:    maxRetries,
		logger:        logger,
	}
}

func (r *geminiReviewer) Review(ctx context.Context, req ReviewRequest) (*models.AIReview, error) {
	req.Resume = TruncateRunes(req.Resume, r.resumeLimit)
	prompt := r.promptBuilder.BuildReviewPrompt(req)

	r.logger.Debug("gemini review request",
		zap.String("job_title", req.Job.Title),
		zap.Int("prompt_length", len(prompt)),
	)

	response, err := r.gemini.GenerateTextWithRetry(ctx, prompt, 0.3, r.maxRetries)
	if err != nil {
		return nil, apperr.Analysis("gemini request failed", err)
	}

	r.logger.Debug("gemini review response", zap.String("response_preview", logger.TruncateForLog(response, 200)))

	return parseReview(response)
}

// inferenceReviewer calls a hosted inference function over HTTP.
type inferenceReviewer struct {
	url         string
	apiKey      string
	httpClient  *http.Client
	resumeLimit int
	logger      *zap.Logger
}

type inferenceRequest struct {
	JobTitle       string `json:"jobTitle"`
	JobDescription string `json:"jobDescription"`
	Requirements   string `json:"requirements"`
	CandidateName  string `json:"candidateName"`
	Resume         string `json:"resume"`
	CoverLetter    string `json:"coverLetter"`
}

func NewInferenceReviewer(url, apiKey string, timeout time.Duration, resumeLimit int, logger *zap.Logger) Reviewer {
	return &inferenceReviewer{
		url:         url,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		resumeLimit: resumeLimit,
		logger:      logger,
	}
}

func (r *inferenceReviewer) Review(ctx context.Context, req ReviewRequest) (*models.AIReview, error) {
	body, err := json.Marshal(inferenceRequest{
		JobTitle:       req.Job.Title,
		JobDescription: req.Job.Description,
		Requirements:   req.Job.Requirements,
		CandidateName:  req.CandidateName,
		Resume:         TruncateRunes(req.Resume, r.resumeLimit),
		CoverLetter:    req.CoverLetter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Analysis("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Analysis("inference request failed", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Analysis("failed to read inference response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("inference endpoint returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.TruncateForLog(string(respBytes), 200)),
		)
		return nil, apperr.Analysis(fmt.Sprintf("inference endpoint returned status %d", resp.StatusCode), nil)
	}

	return parseReview(string(respBytes))
}

// parseReview validates the model output and normalises it into an AIReview
// with a score clamped to [0,100].
func parseReview(raw string) (*models.AIReview, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, apperr.Analysis("response is not a JSON object", err)
	}

	result, err := reviewSchema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, apperr.Analysis("failed to validate response", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, apperr.Analysis("response does not match review schema: "+strings.Join(msgs, "; "), nil)
	}

	score := coerceFloat(data["match_score"])
	if math.IsNaN(score) {
		return nil, apperr.Analysis(fmt.Sprintf("invalid match_score %v", data["match_score"]), nil)
	}

	return &models.AIReview{
		MatchScore:       ClampScore(score),
		MatchingKeywords: coerceStrings(data["matching_keywords"]),
		MissingKeywords:  coerceStrings(data["missing_keywords"]),
		USP:              coerceStrings(data["usp"]),
		Analysis:         coerceString(data["analysis"]),
		Recommendation:   coerceString(data["recommendation"]),
	}, nil
}

func ClampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// extractJSON strips markdown fences and anything around the outermost object.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func coerceStrings(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
