package contract

import (
	"context"

	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	Update(ctx context.Context, item *entity.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Item, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Item, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
