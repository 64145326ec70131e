package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/repository/specification"
	"design-sandbox-be/internal/repository/unitofwork"
	"design-sandbox-be/pkg/events"
	pktNats "design-sandbox-be/pkg/nats"

	"github.com/google/uuid"
)

type IItemService interface {
	List(ctx context.Context, categoryId, componentKey string) (*dto.ListItemsResponse, error)
	Upload(ctx context.Context, req *dto.UploadItemRequest, file *multipart.FileHeader, saveFile func(*multipart.FileHeader, string) error) (*dto.ItemResponse, error)
	Update(ctx context.Context, req *dto.UpdateItemRequest) (*dto.ItemResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type itemService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
	uploadDir      string
	baseURL        string
}

func NewItemService(
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
	uploadDir string,
	baseURL string,
) IItemService {
	return &itemService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		uploadDir:      uploadDir,
		baseURL:        baseURL,
	}
}

// List returns the scoped item list and, when a scope is active, the full
// collection so the client can recompute aggregate counts without a second
// round trip.
func (s *itemService) List(ctx context.Context, categoryId, componentKey string) (*dto.ListItemsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if categoryId != "" {
		specs = append(specs, specification.ByCategoryId{CategoryId: categoryId})
	}
	if componentKey != "" {
		specs = append(specs, specification.ByComponentKey{ComponentKey: componentKey})
	}

	items, err := uow.ItemRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := &dto.ListItemsResponse{
		Items: dto.ToItemResponses(items),
	}

	if categoryId != "" || componentKey != "" {
		all, err := uow.ItemRepository().FindAll(ctx,
			specification.OrderBy{Field: "created_at", Desc: true},
		)
		if err != nil {
			return nil, err
		}
		res.AllItems = dto.ToItemResponses(all)
	}

	return res, nil
}

func (s *itemService) Upload(ctx context.Context, req *dto.UploadItemRequest, file *multipart.FileHeader, saveFile func(*multipart.FileHeader, string) error) (*dto.ItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	item := entity.Item{
		Id:           uuid.New(),
		CategoryId:   req.CategoryId,
		ComponentKey: req.ComponentKey,
		Title:        req.Title,
		Notes:        req.Notes,
		Tags:         req.Tags,
		CreatedAt:    time.Now(),
	}

	if file != nil {
		if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
			return nil, err
		}
		filename := fmt.Sprintf("%s%s", item.Id, filepath.Ext(file.Filename))
		dest := filepath.Join(s.uploadDir, filename)
		if err := saveFile(file, dest); err != nil {
			return nil, err
		}
		item.AssetURL = fmt.Sprintf("%s/uploads/%s", s.baseURL, filename)
	}

	if err := uow.ItemRepository().Create(ctx, &item); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.ItemUploaded, &item)

	return dto.ToItemResponse(&item), nil
}

func (s *itemService) Update(ctx context.Context, req *dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	item, err := uow.ItemRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.ErrNotFound
	}

	// Partial update: nil fields stay untouched
	if req.CategoryId != nil {
		item.CategoryId = *req.CategoryId
	}
	if req.ComponentKey != nil {
		item.ComponentKey = *req.ComponentKey
	}
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.Tags != nil {
		item.Tags = req.Tags
	}
	if req.Annotations != nil {
		item.Annotations = req.Annotations
	}

	now := time.Now()
	item.UpdatedAt = &now

	if err := uow.ItemRepository().Update(ctx, item); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.ItemUpdated, item)

	return dto.ToItemResponse(item), nil
}

func (s *itemService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	item, err := uow.ItemRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.ErrNotFound
	}

	if err := uow.ItemEmbeddingRepository().DeleteByItemId(ctx, id); err != nil {
		return err
	}
	if err := uow.ItemRepository().Delete(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, events.ItemDeleted, item)

	return nil
}

// publishEvent is best-effort; notification is auxiliary and never fails the
// request.
func (s *itemService) publishEvent(ctx context.Context, eventType string, item *entity.Item) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"item_id":       item.Id,
			"title":         item.Title,
			"category_id":   item.CategoryId,
			"component_key": item.ComponentKey,
		},
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		fmt.Printf("[WARN] Failed to publish %s event: %v\n", eventType, err)
	}
}
