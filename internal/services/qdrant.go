package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// ResumeChunk is one embedded piece of an application's resume.
type ResumeChunk struct {
	ApplicationID uuid.UUID
	JobID         uuid.UUID
	Index         int
	Text          string
	Embedding     []float32
}

type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertChunks(ctx context.Context, chunks []ResumeChunk) error
	SearchByJob(ctx context.Context, queryEmbedding []float32, jobID uuid.UUID, limit int) ([]SearchResult, error)
	DeleteApplication(ctx context.Context, applicationID uuid.UUID) error
}

type SearchResult struct {
	ApplicationID string
	JobID         string
	Score         float32
	Text          string
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	logger         *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, vectorSize uint64, logger *zap.Logger) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
		logger:         logger,
	}, nil
}

func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Info("qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// job_id is filtered on every similarity query
	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collectionName,
		FieldName:      "job_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to index job_id: %w", err)
	}

	q.logger.Info("qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertChunks writes chunks under deterministic point IDs, so re-indexing an
// application overwrites its previous points.
func (q *qdrantService) UpsertChunks(ctx context.Context, chunks []ResumeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(chunkPointID(chunk.ApplicationID, chunk.Index).String()),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"application_id": chunk.ApplicationID.String(),
				"job_id":         chunk.JobID.String(),
				"chunk_index":    int64(chunk.Index),
				"text":           chunk.Text,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

func (q *qdrantService) SearchByJob(ctx context.Context, queryEmbedding []float32, jobID uuid.UUID, limit int) ([]SearchResult, error) {
	searchResult, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("job_id", jobID.String()),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResult))
	for _, point := range searchResult {
		payload := point.Payload
		results = append(results, SearchResult{
			ApplicationID: payloadString(payload, "application_id"),
			JobID:         payloadString(payload, "job_id"),
			Score:         point.Score,
			Text:          payloadString(payload, "text"),
		})
	}

	return results, nil
}

func (q *qdrantService) DeleteApplication(ctx context.Context, applicationID uuid.UUID) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("application_id", applicationID.String()),
		},
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete application points: %w", err)
	}

	return nil
}

func chunkPointID(applicationID uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(applicationID, []byte(strconv.Itoa(index)))
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if val, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return val.StringValue
		}
	}
	return ""
}
