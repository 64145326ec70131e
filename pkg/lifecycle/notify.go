package lifecycle

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Bus topics consumed by the websocket bridge.
const (
	TopicToasts = "sandbox.toasts"
	TopicState  = "sandbox.state"
)

// Toast severity levels.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

// Notifier receives user-facing messages and state-change events from the
// controller. Delivery is best-effort; the controller never blocks on it.
type Notifier interface {
	Toast(level string, message string)
	StateChanged(field string, value interface{})
}

// Confirmer presents a blocking yes/no prompt to the user. Used only for the
// briefing-overwrite confirmation.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// BusNotifier publishes notifications onto a watermill bus as JSON payloads.
type BusNotifier struct {
	publisher message.Publisher
}

func NewBusNotifier(publisher message.Publisher) *BusNotifier {
	return &BusNotifier{publisher: publisher}
}

func (n *BusNotifier) Toast(level string, msg string) {
	n.publish(TopicToasts, map[string]interface{}{
		"level":   level,
		"message": msg,
	})
}

func (n *BusNotifier) StateChanged(field string, value interface{}) {
	n.publish(TopicState, map[string]interface{}{
		"field": field,
		"value": value,
	})
}

func (n *BusNotifier) publish(topic string, payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = n.publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), body))
}

// NopNotifier discards everything. Useful in tests and offline tooling.
type NopNotifier struct{}

func (NopNotifier) Toast(string, string)             {}
func (NopNotifier) StateChanged(string, interface{}) {}

// AutoConfirmer answers every confirmation with a fixed decision.
type AutoConfirmer struct {
	Decision bool
}

func (c AutoConfirmer) Confirm(context.Context, string) (bool, error) {
	return c.Decision, nil
}
