package dto

import (
	"time"

	"design-sandbox-be/internal/entity"

	"github.com/google/uuid"
)

type ItemResponse struct {
	Id           uuid.UUID              `json:"id"`
	CategoryId   string                 `json:"category_id,omitempty"`
	ComponentKey string                 `json:"component_key,omitempty"`
	Title        string                 `json:"title"`
	Notes        string                 `json:"notes"`
	Tags         []string               `json:"tags"`
	Briefing     string                 `json:"briefing,omitempty"`
	Analysis     *entity.ItemAnalysis   `json:"analysis,omitempty"`
	Annotations  map[string]interface{} `json:"annotations,omitempty"`
	AssetURL     string                 `json:"asset_url,omitempty"`
	Score        *float64               `json:"score,omitempty"` // similarity, search responses only
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    *time.Time             `json:"updated_at"`
}

// ListItemsResponse carries the scoped list plus, when the scope is narrower
// than the whole collection, the full set used for aggregate counts.
type ListItemsResponse struct {
	Items    []*ItemResponse `json:"items"`
	AllItems []*ItemResponse `json:"all_items,omitempty"`
}

type UploadItemRequest struct {
	CategoryId   string   `json:"category_id"`
	ComponentKey string   `json:"component_key"`
	Title        string   `json:"title" validate:"required"`
	Notes        string   `json:"notes"`
	Tags         []string `json:"tags"`
}

// UpdateItemRequest is a partial update; nil fields are left untouched.
type UpdateItemRequest struct {
	Id           uuid.UUID
	CategoryId   *string                `json:"category_id"`
	ComponentKey *string                `json:"component_key"`
	Title        *string                `json:"title"`
	Notes        *string                `json:"notes"`
	Tags         []string               `json:"tags"`
	Annotations  map[string]interface{} `json:"annotations"`
}

type StageRequest struct {
	ItemId uuid.UUID `json:"item_id" validate:"required"`
}

type BriefingRequest struct {
	ItemId uuid.UUID `json:"item_id" validate:"required"`
	Force  bool      `json:"force"`
}

// BriefingConflictResponse is returned with HTTP 409 when a briefing already
// exists and force was not set.
type BriefingConflictResponse struct {
	Conflict             bool `json:"conflict"`
	RequiresConfirmation bool `json:"requires_confirmation"`
}

type SearchItemsRequest struct {
	Query        string  `json:"query" validate:"required"`
	CategoryId   string  `json:"category_id"`
	ComponentKey string  `json:"component_key"`
	Limit        int     `json:"limit"`
	Threshold    float64 `json:"threshold"`
	Space        string  `json:"space" validate:"omitempty,oneof=briefing full"`
}

type SearchItemsResponse struct {
	Items []*ItemResponse `json:"items"`
	Space string          `json:"space"`
}

func ToItemResponse(i *entity.Item) *ItemResponse {
	if i == nil {
		return nil
	}
	res := &ItemResponse{
		Id:           i.Id,
		CategoryId:   i.CategoryId,
		ComponentKey: i.ComponentKey,
		Title:        i.Title,
		Notes:        i.Notes,
		Tags:         i.Tags,
		Briefing:     i.Briefing,
		Analysis:     i.Analysis,
		Annotations:  i.Annotations,
		AssetURL:     i.AssetURL,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
	if i.Score != 0 {
		score := float64(i.Score)
		res.Score = &score
	}
	return res
}

func ToItemResponses(items []*entity.Item) []*ItemResponse {
	out := make([]*ItemResponse, len(items))
	for i, item := range items {
		out[i] = ToItemResponse(item)
	}
	return out
}
