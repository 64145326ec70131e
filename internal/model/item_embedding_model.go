package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ItemEmbedding rows are derived data: one row per (item_id, space), replaced
// in place by the upsert and hard-deleted with their item. The unique index is
// the conflict target of the upsert, so soft deletion would leave tombstones
// colliding with fresh rows.
type ItemEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemId         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_item_space"`
	Space          string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_item_space"` // "briefing" | "full"
	Document       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text / text-embedding-004 width
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (ItemEmbedding) TableName() string {
	return "item_embeddings"
}
