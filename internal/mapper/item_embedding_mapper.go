package mapper

import (
	"time"

	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ItemEmbeddingMapper struct{}

func NewItemEmbeddingMapper() *ItemEmbeddingMapper {
	return &ItemEmbeddingMapper{}
}

func (m *ItemEmbeddingMapper) ToEntity(e *model.ItemEmbedding) *entity.ItemEmbedding {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.ItemEmbedding{
		Id:        e.Id,
		ItemId:    e.ItemId,
		Space:     entity.SearchSpace(e.Space),
		Document:  e.Document,
		Embedding: e.EmbeddingValue.Slice(),
		CreatedAt: e.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ItemEmbeddingMapper) ToModel(e *entity.ItemEmbedding) *model.ItemEmbedding {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.ItemEmbedding{
		Id:             e.Id,
		ItemId:         e.ItemId,
		Space:          string(e.Space),
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.Embedding),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}
