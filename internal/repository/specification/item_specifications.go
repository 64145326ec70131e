package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByCategoryId struct {
	CategoryId string
}

func (s ByCategoryId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category_id = ?", s.CategoryId)
}

type ByComponentKey struct {
	ComponentKey string
}

func (s ByComponentKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("component_key = ?", s.ComponentKey)
}

type ByItemId struct {
	ItemId uuid.UUID
}

func (s ByItemId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("item_id = ?", s.ItemId)
}

type BySpace struct {
	Space string
}

func (s BySpace) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("space = ?", s.Space)
}
