package service

import (
	"context"
	"strings"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/repository/specification"
	"design-sandbox-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const (
	defaultSearchLimit     = 20
	defaultSearchThreshold = 0.3
)

type ISearchService interface {
	Search(ctx context.Context, req *dto.SearchItemsRequest) (*dto.SearchItemsResponse, error)
}

type searchService struct {
	uowFactory unitofwork.RepositoryFactory
	enrichment IEnrichmentService
}

func NewSearchService(
	uowFactory unitofwork.RepositoryFactory,
	enrichment IEnrichmentService,
) ISearchService {
	return &searchService{
		uowFactory: uowFactory,
		enrichment: enrichment,
	}
}

func (s *searchService) Search(ctx context.Context, req *dto.SearchItemsRequest) (*dto.SearchItemsResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperr.ErrValidation
	}

	space := entity.SearchSpace(req.Space)
	if req.Space == "" {
		space = entity.SpaceFull
	}
	if !space.Valid() {
		return nil, apperr.ErrValidation
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = defaultSearchThreshold
	}

	vector, err := s.enrichment.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	scored, err := uow.ItemEmbeddingRepository().SearchSimilar(
		ctx, vector, space, req.CategoryId, req.ComponentKey, limit, threshold,
	)
	if err != nil {
		return nil, err
	}

	if len(scored) == 0 {
		return &dto.SearchItemsResponse{Items: []*dto.ItemResponse{}, Space: string(space)}, nil
	}

	ids := make([]uuid.UUID, len(scored))
	similarityById := make(map[uuid.UUID]float64, len(scored))
	for i, hit := range scored {
		ids[i] = hit.ItemId
		similarityById[hit.ItemId] = hit.Similarity
	}

	items, err := uow.ItemRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, err
	}

	// Re-apply similarity ordering; the id lookup does not preserve it.
	itemById := make(map[uuid.UUID]*entity.Item, len(items))
	for _, item := range items {
		itemById[item.Id] = item
	}

	responses := make([]*dto.ItemResponse, 0, len(scored))
	for _, hit := range scored {
		item, ok := itemById[hit.ItemId]
		if !ok {
			continue // deleted between the two queries
		}
		item.Score = float32(hit.Similarity)
		responses = append(responses, dto.ToItemResponse(item))
	}

	return &dto.SearchItemsResponse{
		Items: responses,
		Space: string(space),
	}, nil
}
