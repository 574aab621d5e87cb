package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/models"
)

const (
	chunkSize    = 800
	chunkOverlap = 100
)

// Embedder turns text into a vector. GeminiService satisfies it.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ResumeIndexer keeps the vector store in step with application resumes and
// answers "which applicants best match this job" queries.
type ResumeIndexer interface {
	IndexApplication(ctx context.Context, app *models.Application) (int, error)
	SimilarForJob(ctx context.Context, job *models.Job, limit int) ([]models.SimilarCandidate, error)
}

type resumeIndexer struct {
	embedder      Embedder
	store         QdrantService
	chunker       TextChunker
	promptBuilder *PromptBuilder
	logger        *zap.Logger
}

func NewResumeIndexer(embedder Embedder, store QdrantService, logger *zap.Logger) ResumeIndexer {
	return &resumeIndexer{
		embedder:      embedder,
		store:         store,
		chunker:       NewTextChunker(),
		promptBuilder: NewPromptBuilder(),
		logger:        logger,
	}
}

// IndexApplication replaces the application's points and returns how many
// chunks were written.
func (r *resumeIndexer) IndexApplication(ctx context.Context, app *models.Application) (int, error) {
	chunks := r.chunker.ChunkText(CleanParagraphs(app.ResumeText), chunkSize, chunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := r.store.DeleteApplication(ctx, app.ID); err != nil {
		return 0, err
	}

	points := make([]ResumeChunk, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := r.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		points = append(points, ResumeChunk{
			ApplicationID: app.ID,
			JobID:         app.JobID,
			Index:         i,
			Text:          chunk,
			Embedding:     embedding,
		})
	}

	if err := r.store.UpsertChunks(ctx, points); err != nil {
		return 0, err
	}

	r.logger.Debug("application indexed",
		zap.String("application_id", app.ID.String()),
		zap.Int("chunks", len(points)),
	)
	return len(points), nil
}

// SimilarForJob ranks the job's applications by their best-matching chunk.
func (r *resumeIndexer) SimilarForJob(ctx context.Context, job *models.Job, limit int) ([]models.SimilarCandidate, error) {
	if limit <= 0 {
		limit = 5
	}

	query := r.promptBuilder.BuildSimilarityQuery(job.Context())
	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed job description: %w", err)
	}

	// several chunks of one resume can match; over-fetch before deduplicating
	hits, err := r.store.SearchByJob(ctx, embedding, job.ID, limit*4)
	if err != nil {
		return nil, err
	}

	return rankCandidates(hits, limit), nil
}

func rankCandidates(hits []SearchResult, limit int) []models.SimilarCandidate {
	best := map[string]models.SimilarCandidate{}
	for _, hit := range hits {
		if _, err := uuid.Parse(hit.ApplicationID); err != nil {
			continue
		}
		if current, ok := best[hit.ApplicationID]; ok && current.Score >= hit.Score {
			continue
		}
		best[hit.ApplicationID] = models.SimilarCandidate{
			ApplicationID: hit.ApplicationID,
			Score:         hit.Score,
			Excerpt:       FormatSimilarExcerpt(hit.Text),
		}
	}

	ranked := make([]models.SimilarCandidate, 0, len(best))
	for _, candidate := range best {
		ranked = append(ranked, candidate)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].ApplicationID < ranked[j].ApplicationID
		}
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
