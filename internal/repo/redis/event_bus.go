package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

const MatchCreatedChannel = "events:match.created"

func RoomMessagesChannel(roomID int64) string {
	return "events:room." + strconv.FormatInt(roomID, 10) + ".messages"
}

// EventBus publishes domain events for consumers outside this process. Delivery is
// best effort; Redis drops messages nobody is subscribed to.
type EventBus struct {
	client *goredis.Client
}

func NewEventBus(client *goredis.Client) *EventBus {
	return &EventBus{client: client}
}

func (b *EventBus) PublishMatchCreated(ctx context.Context, evt model.MatchEvent) error {
	return b.publish(ctx, MatchCreatedChannel, evt)
}

func (b *EventBus) PublishMessageAccepted(ctx context.Context, evt model.MessageEvent) error {
	return b.publish(ctx, RoomMessagesChannel(evt.RoomID), evt)
}

func (b *EventBus) publish(ctx context.Context, channel string, payload any) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", channel, err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish event to %s: %w", channel, err)
	}
	return nil
}
