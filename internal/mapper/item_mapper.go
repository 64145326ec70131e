package mapper

import (
	"encoding/json"
	"time"

	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/model"

	"gorm.io/datatypes"
)

type ItemMapper struct{}

func NewItemMapper() *ItemMapper {
	return &ItemMapper{}
}

func (m *ItemMapper) ToEntity(i *model.Item) *entity.Item {
	if i == nil {
		return nil
	}

	var updatedAt *time.Time
	if !i.UpdatedAt.IsZero() {
		t := i.UpdatedAt
		updatedAt = &t
	}

	var analysis *entity.ItemAnalysis
	if len(i.Analysis) > 0 {
		var a entity.ItemAnalysis
		if err := json.Unmarshal(i.Analysis, &a); err == nil {
			analysis = &a
		}
	}

	var annotations map[string]interface{}
	if len(i.Annotations) > 0 {
		// Annotation payload is opaque; a decode failure just leaves it nil.
		_ = json.Unmarshal(i.Annotations, &annotations)
	}

	return &entity.Item{
		Id:           i.Id,
		CategoryId:   i.CategoryId,
		ComponentKey: i.ComponentKey,
		Title:        i.Title,
		Notes:        i.Notes,
		Tags:         i.Tags,
		Briefing:     i.Briefing,
		Analysis:     analysis,
		Annotations:  annotations,
		AssetURL:     i.AssetURL,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *ItemMapper) ToModel(i *entity.Item) *model.Item {
	if i == nil {
		return nil
	}

	var updatedAt time.Time
	if i.UpdatedAt != nil {
		updatedAt = *i.UpdatedAt
	}

	var analysis datatypes.JSON
	if i.Analysis != nil {
		if b, err := json.Marshal(i.Analysis); err == nil {
			analysis = b
		}
	}

	var annotations datatypes.JSON
	if i.Annotations != nil {
		if b, err := json.Marshal(i.Annotations); err == nil {
			annotations = b
		}
	}

	return &model.Item{
		Id:           i.Id,
		CategoryId:   i.CategoryId,
		ComponentKey: i.ComponentKey,
		Title:        i.Title,
		Notes:        i.Notes,
		Tags:         datatypes.NewJSONSlice(i.Tags),
		Briefing:     i.Briefing,
		Analysis:     analysis,
		Annotations:  annotations,
		AssetURL:     i.AssetURL,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}
