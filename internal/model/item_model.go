package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Item struct {
	Id           uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CategoryId   string                      `gorm:"type:varchar(64);index"`
	ComponentKey string                      `gorm:"type:varchar(64);index"`
	Title        string                      `gorm:"type:varchar(255)"`
	Notes        string                      `gorm:"type:text"`
	Tags         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Briefing     string                      `gorm:"type:text"`
	Analysis     datatypes.JSON              `gorm:"type:jsonb"`
	Annotations  datatypes.JSON              `gorm:"type:jsonb"`
	AssetURL     string                      `gorm:"type:varchar(512)"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt              `gorm:"index"`
}

func (Item) TableName() string {
	return "items"
}
