package entity

import (
	"time"

	"github.com/google/uuid"
)

// SearchSpace selects which precomputed embedding representation a
// similarity query is matched against.
type SearchSpace string

const (
	// SpaceBriefing matches against embeddings of the generated briefing text.
	SpaceBriefing SearchSpace = "briefing"
	// SpaceFull matches against embeddings of the full item content
	// (title, notes, tags, analysis).
	SpaceFull SearchSpace = "full"
)

func (s SearchSpace) Valid() bool {
	return s == SpaceBriefing || s == SpaceFull
}

// ItemAnalysis is the structured output of the content analysis stage.
type ItemAnalysis struct {
	Palette       []string `json:"palette,omitempty"`
	Typography    string   `json:"typography,omitempty"`
	Mood          []string `json:"mood,omitempty"`
	TransferNotes string   `json:"transferNotes,omitempty"`
}

// Item is an uploaded reference asset plus its enrichment state.
// CategoryId and ComponentKey scope the item inside the design sandbox;
// either or both may be empty.
type Item struct {
	Id           uuid.UUID
	CategoryId   string
	ComponentKey string
	Title        string
	Notes        string
	Tags         []string
	Briefing     string
	Analysis     *ItemAnalysis
	Annotations  map[string]interface{} // opaque to the lifecycle core
	AssetURL     string
	// Score is the similarity annotation attached to search results.
	// Zero outside of a search response.
	Score     float32
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// HasBriefing reports whether a briefing has been generated for the item.
func (i *Item) HasBriefing() bool {
	return i != nil && i.Briefing != ""
}
