package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/constant"
	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/repository/specification"
	"design-sandbox-be/internal/repository/unitofwork"
	"design-sandbox-be/pkg/embedding"
	"design-sandbox-be/pkg/events"
	"design-sandbox-be/pkg/llm"
	pktNats "design-sandbox-be/pkg/nats"
	"design-sandbox-be/pkg/utils"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// embedInputLimit caps embedding documents; briefings can get long.
const embedInputLimit = 6000

type IEnrichmentService interface {
	Analyze(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error)
	Embed(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error)
	GenerateBriefing(ctx context.Context, itemId uuid.UUID, force bool) (*dto.ItemResponse, error)
	// EmbedQuery exposes the memoized query-side embedding for the search service.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

type enrichmentService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	llmProvider       llm.LLMProvider
	eventPublisher    *pktNats.Publisher
	// vectorCache memoizes embeddings per content hash so re-running the
	// embed stage on unchanged text skips the provider round trip.
	vectorCache *gocache.Cache
}

func NewEnrichmentService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	eventPublisher *pktNats.Publisher,
) IEnrichmentService {
	return &enrichmentService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		llmProvider:       llmProvider,
		eventPublisher:    eventPublisher,
		vectorCache:       gocache.New(30*time.Minute, 10*time.Minute),
	}
}

func (s *enrichmentService) Analyze(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	item, err := uow.ItemRepository().FindOne(ctx, specification.ByID{ID: itemId})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.ErrNotFound
	}

	prompt := fmt.Sprintf(constant.PromptAnalyzeItem,
		item.Title, item.Notes, strings.Join(item.Tags, ", "))

	raw, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("analyze item %s: %w", itemId, err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return nil, fmt.Errorf("analyze item %s: %w", itemId, err)
	}

	now := time.Now()
	item.Analysis = analysis
	item.UpdatedAt = &now

	if err := uow.ItemRepository().Update(ctx, item); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.ItemAnalyzed, item)

	return dto.ToItemResponse(item), nil
}

// parseAnalysis tolerates models that wrap JSON in markdown fences.
func parseAnalysis(raw string) (*entity.ItemAnalysis, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var analysis entity.ItemAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("unparseable analysis response: %w", err)
	}
	return &analysis, nil
}

// Embed recomputes both embedding spaces for the item. The full space always
// exists; the briefing space is only written when a briefing is present.
func (s *enrichmentService) Embed(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	item, err := uow.ItemRepository().FindOne(ctx, specification.ByID{ID: itemId})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.ErrNotFound
	}

	fullDoc := composeFullDocument(item)
	if err := s.embedInto(ctx, uow, item.Id, entity.SpaceFull, fullDoc); err != nil {
		return nil, err
	}

	if item.HasBriefing() {
		if err := s.embedInto(ctx, uow, item.Id, entity.SpaceBriefing, item.Briefing); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.ItemEmbedded, item)

	return dto.ToItemResponse(item), nil
}

func (s *enrichmentService) GenerateBriefing(ctx context.Context, itemId uuid.UUID, force bool) (*dto.ItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	item, err := uow.ItemRepository().FindOne(ctx, specification.ByID{ID: itemId})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.ErrNotFound
	}

	// The conflict branch: an existing briefing is only overwritten when the
	// caller explicitly forces it.
	if item.HasBriefing() && !force {
		return nil, apperr.ErrBriefingExists
	}

	transferNotes := ""
	if item.Analysis != nil {
		transferNotes = item.Analysis.TransferNotes
	}

	prompt := fmt.Sprintf(constant.PromptGenerateBriefing,
		item.Title, item.Notes, strings.Join(item.Tags, ", "), transferNotes)

	briefing, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.7))
	if err != nil {
		return nil, fmt.Errorf("generate briefing for item %s: %w", itemId, err)
	}

	now := time.Now()
	item.Briefing = strings.TrimSpace(briefing)
	item.UpdatedAt = &now

	if err := uow.ItemRepository().Update(ctx, item); err != nil {
		return nil, err
	}

	// A fresh briefing invalidates the briefing-space vector.
	if err := s.embedInto(ctx, uow, item.Id, entity.SpaceBriefing, item.Briefing); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.ItemBriefingGenerated, item)

	return dto.ToItemResponse(item), nil
}

func (s *enrichmentService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.embedText(ctx, query, embedding.TaskQuery)
}

func (s *enrichmentService) embedInto(ctx context.Context, uow unitofwork.UnitOfWork, itemId uuid.UUID, space entity.SearchSpace, document string) error {
	document = utils.Excerpt(document, embedInputLimit)

	vector, err := s.embedText(ctx, document, embedding.TaskDocument)
	if err != nil {
		return fmt.Errorf("embed item %s space %s: %w", itemId, space, err)
	}

	emb := entity.ItemEmbedding{
		Id:        uuid.New(),
		ItemId:    itemId,
		Space:     space,
		Document:  document,
		Embedding: vector,
		CreatedAt: time.Now(),
	}
	return uow.ItemEmbeddingRepository().Upsert(ctx, &emb)
}

func (s *enrichmentService) embedText(ctx context.Context, text string, taskType string) ([]float32, error) {
	sum := sha256.Sum256([]byte(taskType + "\x00" + text))
	key := hex.EncodeToString(sum[:])

	if cached, found := s.vectorCache.Get(key); found {
		return cached.([]float32), nil
	}

	vector, err := s.embeddingProvider.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}

	s.vectorCache.Set(key, vector, gocache.DefaultExpiration)
	return vector, nil
}

// composeFullDocument flattens the item's textual fields into one embedding
// document for the full space.
func composeFullDocument(item *entity.Item) string {
	parts := []string{}
	if item.Title != "" {
		parts = append(parts, item.Title)
	}
	if item.Notes != "" {
		parts = append(parts, item.Notes)
	}
	if len(item.Tags) > 0 {
		parts = append(parts, strings.Join(item.Tags, ", "))
	}
	if item.Analysis != nil && item.Analysis.TransferNotes != "" {
		parts = append(parts, item.Analysis.TransferNotes)
	}
	return strings.Join(parts, ". ")
}

func (s *enrichmentService) publishEvent(ctx context.Context, eventType string, item *entity.Item) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"item_id": item.Id,
			"title":   item.Title,
		},
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		fmt.Printf("[WARN] Failed to publish %s event: %v\n", eventType, err)
	}
}
