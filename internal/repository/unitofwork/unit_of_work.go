package unitofwork

import (
	"context"

	"design-sandbox-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ItemRepository() contract.ItemRepository
	ItemEmbeddingRepository() contract.ItemEmbeddingRepository
}
