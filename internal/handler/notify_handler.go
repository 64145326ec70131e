package handler

import (
	"context"
	"encoding/json"
	"os"

	"design-sandbox-be/internal/pkg/logger"
	internalWS "design-sandbox-be/internal/websocket"
	"design-sandbox-be/pkg/events"
	"design-sandbox-be/pkg/lifecycle"
	pktNats "design-sandbox-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NotifyHandler bridges the in-process notification bus (toasts and state
// changes from the lifecycle controller) and the NATS item-event stream onto
// the websocket hub, and owns the /ws route.
type NotifyHandler struct {
	pubSub     *gochannel.GoChannel
	subscriber *pktNats.Subscriber
	hub        *internalWS.Hub
	logger     logger.ILogger
}

func NewNotifyHandler(pubSub *gochannel.GoChannel, subscriber *pktNats.Subscriber, hub *internalWS.Hub, log logger.ILogger) *NotifyHandler {
	return &NotifyHandler{
		pubSub:     pubSub,
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

func (h *NotifyHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", websocket.New(h.serveWs))
}

// Start wires the bus subscriptions. Call once, before serving traffic.
func (h *NotifyHandler) Start(ctx context.Context) error {
	for _, topic := range []string{lifecycle.TopicToasts, lifecycle.TopicState} {
		messages, err := h.pubSub.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go h.pump(topic, messages)
	}

	// Item events published by other backend instances or offline tooling.
	if h.subscriber != nil {
		err := h.subscriber.Subscribe("items.>", "sandbox-notify", func(ctx context.Context, event events.Event) error {
			h.hub.Broadcast("item_event", map[string]interface{}{
				"type":    event.EventType(),
				"payload": event.Payload(),
			})
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (h *NotifyHandler) pump(topic string, messages <-chan *message.Message) {
	for msg := range messages {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.logger.Warn("NotifyHandler", "Unparseable bus message", map[string]interface{}{"topic": topic, "error": err.Error()})
			msg.Ack()
			continue
		}
		h.hub.Broadcast(topic, payload)
		msg.Ack()
	}
}

func (h *NotifyHandler) serveWs(c *websocket.Conn) {
	// Browser websockets cannot set headers, so the credential arrives as a
	// query parameter.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.Close()
		return
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		c.Close()
		return
	}

	sessionID := uuid.New()
	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		if sid, ok := claims["session_id"].(string); ok {
			if parsed, err := uuid.Parse(sid); err == nil {
				sessionID = parsed
			}
		}
	}

	internalWS.ServeWs(h.hub, c, sessionID)
}
