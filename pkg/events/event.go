package events

import "time"

// Item lifecycle event codes published to the bus.
const (
	ItemUploaded          = "ITEM_UPLOADED"
	ItemUpdated           = "ITEM_UPDATED"
	ItemDeleted           = "ITEM_DELETED"
	ItemAnalyzed          = "ITEM_ANALYZED"
	ItemEmbedded          = "ITEM_EMBEDDED"
	ItemBriefingGenerated = "ITEM_BRIEFING_GENERATED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "ITEM_UPLOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used by all publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
