package contract

import (
	"context"

	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredItem pairs an item id with its cosine similarity against a query vector.
type ScoredItem struct {
	ItemId     uuid.UUID
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type ItemEmbeddingRepository interface {
	Upsert(ctx context.Context, embedding *entity.ItemEmbedding) error
	DeleteByItemId(ctx context.Context, itemId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ItemEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar returns item ids with similarity scores, filtered by threshold,
	// restricted to one embedding space and the optional category/component scope.
	SearchSimilar(ctx context.Context, embedding []float32, space entity.SearchSpace, categoryId, componentKey string, limit int, threshold float64) ([]*ScoredItem, error)
}
