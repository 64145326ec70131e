package entity

import (
	"time"

	"github.com/google/uuid"
)

type ItemEmbedding struct {
	Id        uuid.UUID
	ItemId    uuid.UUID
	Space     SearchSpace
	Document  string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt *time.Time
}
