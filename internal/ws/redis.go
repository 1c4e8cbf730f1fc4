package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/pinfall/backend/internal/game"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber relays drop_events and session_events from redis to
// connected browsers. Drops published by this process (origin) were already
// sent to their own room by the session, so they only go out as feed items
func StartEventSubscriber(ctx context.Context, hub *Hub, rdb *redis.Client, origin string) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, game.DropEventsChannel, game.SessionEventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Println("[WS] drop_events/session_events subscriber started")
		for msg := range ch {
			switch msg.Channel {
			case game.DropEventsChannel:
				handleDropEvent(hub, origin, msg.Payload)
			case game.SessionEventsChannel:
				handleSessionEvent(hub, msg.Payload)
			}
		}
		log.Println("[WS] event subscriber stopped")
	}()
}

func handleDropEvent(hub *Hub, origin, payload string) {
	var ev game.DropEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("[WS] invalid drop event payload: %v", err)
		return
	}

	// drops recorded elsewhere reach this session's room too
	if ev.Origin != origin {
		hub.BroadcastToSession(ev.Drop.SessionID, map[string]interface{}{
			"type": game.MsgDrop,
			"data": ev.Drop,
		})
	}
	hub.BroadcastExcept(ev.Drop.SessionID, map[string]interface{}{
		"type": "feed_drop",
		"data": ev.Drop,
	})
}

func handleSessionEvent(hub *Hub, payload string) {
	var ev map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("[WS] invalid session event payload: %v", err)
		return
	}
	typeStr, _ := ev["type"].(string)
	sessionID, _ := ev["session_id"].(string)

	switch typeStr {
	case "session_expired":
		hub.BroadcastToSession(sessionID, map[string]interface{}{
			"type":    "session_expired",
			"message": "Session closed after inactivity",
		})
	default:
		log.Printf("[WS] unknown session event type: %s", typeStr)
	}
}
