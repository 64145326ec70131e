package implementation

import (
	"context"
	"errors"

	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/mapper"
	"design-sandbox-be/internal/model"
	"design-sandbox-be/internal/repository/contract"
	"design-sandbox-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ItemEmbeddingMapper
}

func NewItemEmbeddingRepository(db *gorm.DB) contract.ItemEmbeddingRepository {
	return &ItemEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewItemEmbeddingMapper(),
	}
}

func (r *ItemEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// upsertConflictColumns is the conflict target of Upsert. It must match the
// unique index on model.ItemEmbedding or Postgres rejects the ON CONFLICT
// clause (SQLSTATE 42P10).
var upsertConflictColumns = []clause.Column{{Name: "item_id"}, {Name: "space"}}

// Upsert replaces the embedding for (item_id, space). Each item carries at most
// one row per space, so re-embedding is idempotent.
func (r *ItemEmbeddingRepositoryImpl) Upsert(ctx context.Context, embedding *entity.ItemEmbedding) error {
	m := r.mapper.ToModel(embedding)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   upsertConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{"document", "embedding_value", "updated_at"}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *ItemEmbeddingRepositoryImpl) DeleteByItemId(ctx context.Context, itemId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("item_id = ?", itemId).Delete(&model.ItemEmbedding{}).Error
}

func (r *ItemEmbeddingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ItemEmbedding, error) {
	var m model.ItemEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ItemEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ItemEmbedding{}).Count(&count).Error
	return count, err
}

// SearchSimilar returns scored item ids ordered by cosine similarity.
// Cosine distance in pgvector is 1 - cosine_similarity, so similarity is
// computed as 1 - (embedding_value <=> query_vector).
func (r *ItemEmbeddingRepositoryImpl) SearchSimilar(
	ctx context.Context,
	embedding []float32,
	space entity.SearchSpace,
	categoryId, componentKey string,
	limit int,
	threshold float64,
) ([]*contract.ScoredItem, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		ItemId     uuid.UUID
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	q := r.db.WithContext(ctx).
		Table("item_embeddings").
		Select("item_embeddings.item_id, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN items ON items.id = item_embeddings.item_id").
		Where("item_embeddings.space = ?", string(space)).
		Where("items.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)

	if categoryId != "" {
		q = q.Where("items.category_id = ?", categoryId)
	}
	if componentKey != "" {
		q = q.Where("items.component_key = ?", componentKey)
	}

	err := q.Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredItem, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredItem{
			ItemId:     res.ItemId,
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
